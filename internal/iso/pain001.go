package iso

import (
	"io"

	"github.com/rotisserie/eris"

	"github.com/fintel-ai/tribunal/internal/model"
)

// PaymentInitiation is a parsed pain.001 customer credit transfer
// initiation. Batched files keep only the first payment block and its
// first transaction.
type PaymentInitiation struct {
	MessageType            string       `json:"message_type"`
	MessageID              string       `json:"message_id"`
	CreationDateTime       string       `json:"creation_datetime"`
	TransactionCount       string       `json:"number_of_transactions"`
	PaymentInfoID          string       `json:"payment_info_id"`
	RequestedExecutionDate string       `json:"requested_execution_date"`
	Debtor                 PartyDetail  `json:"debtor"`
	Creditor               PartyDetail  `json:"creditor"`
	Amount                 model.Amount `json:"amount"`
	EndToEndID             string       `json:"end_to_end_id"`
}

type pain001Document struct {
	Initiation struct {
		GrpHdr struct {
			MsgId   string `xml:"MsgId"`
			CreDtTm string `xml:"CreDtTm"`
			NbOfTxs string `xml:"NbOfTxs"`
		} `xml:"GrpHdr"`
		PmtInf []struct {
			PmtInfId    string     `xml:"PmtInfId"`
			ReqdExctnDt string     `xml:"ReqdExctnDt"`
			Dbtr        partyXML   `xml:"Dbtr"`
			DbtrAcct    accountXML `xml:"DbtrAcct"`
			Txs         []struct {
				PmtId struct {
					EndToEndId string `xml:"EndToEndId"`
				} `xml:"PmtId"`
				Amt struct {
					InstdAmt activeAmount `xml:"InstdAmt"`
				} `xml:"Amt"`
				Cdtr     partyXML   `xml:"Cdtr"`
				CdtrAcct accountXML `xml:"CdtrAcct"`
			} `xml:"CdtTrfTxInf"`
		} `xml:"PmtInf"`
	} `xml:"CstmrCdtTrfInitn"`
}

// ParsePain001 parses a pain.001 message.
func ParsePain001(r io.Reader) (*PaymentInitiation, error) {
	var doc pain001Document
	if err := decode(r, &doc); err != nil {
		return nil, eris.Wrap(err, "iso: parse pain.001")
	}
	if len(doc.Initiation.PmtInf) == 0 {
		return nil, eris.New("iso: pain.001 contains no payment information block")
	}
	pi := doc.Initiation.PmtInf[0]
	if len(pi.Txs) == 0 {
		return nil, eris.New("iso: pain.001 contains no credit transfer transaction")
	}
	tx := pi.Txs[0]

	amt := tx.Amt.InstdAmt.Value
	if amt == "" {
		amt = "0"
	}
	count := doc.Initiation.GrpHdr.NbOfTxs
	if count == "" {
		count = "1"
	}

	return &PaymentInitiation{
		MessageType:            "pain.001",
		MessageID:              doc.Initiation.GrpHdr.MsgId,
		CreationDateTime:       doc.Initiation.GrpHdr.CreDtTm,
		TransactionCount:       count,
		PaymentInfoID:          pi.PmtInfId,
		RequestedExecutionDate: pi.ReqdExctnDt,
		Debtor: PartyDetail{
			Name:        pi.Dbtr.Nm,
			AccountIBAN: pi.DbtrAcct.Id.IBAN,
		},
		Creditor: PartyDetail{
			Name:        tx.Cdtr.Nm,
			AccountIBAN: tx.CdtrAcct.Id.IBAN,
		},
		Amount:     model.Amount{Value: amt, Currency: tx.Amt.InstdAmt.currency()},
		EndToEndID: tx.PmtId.EndToEndId,
	}, nil
}

// Transaction converts the parsed initiation into the investigation
// model. pain.001 carries no UETR, so the end-to-end id stands in.
func (pi *PaymentInitiation) Transaction() model.Transaction {
	return model.Transaction{
		UETR:           pi.EndToEndID,
		EndToEndID:     pi.EndToEndID,
		Debtor:         pi.Debtor.party(),
		Creditor:       pi.Creditor.party(),
		Amount:         pi.Amount,
		SettlementDate: pi.RequestedExecutionDate,
	}
}
