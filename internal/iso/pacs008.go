package iso

import (
	"io"

	"github.com/rotisserie/eris"

	"github.com/fintel-ai/tribunal/internal/model"
)

// CreditTransfer is a parsed pacs.008 FI-to-FI customer credit transfer.
// When the message batches multiple transactions only the first is kept.
type CreditTransfer struct {
	MessageType      string       `json:"message_type"`
	UETR             string       `json:"uetr"`
	EndToEndID       string       `json:"end_to_end_id"`
	CreationDateTime string       `json:"creation_datetime"`
	SettlementDate   string       `json:"settlement_date"`
	Debtor           PartyDetail  `json:"debtor"`
	Creditor         PartyDetail  `json:"creditor"`
	Amount           model.Amount `json:"amount"`
	RemittanceInfo   string       `json:"remittance_info"`
	PurposeCode      string       `json:"purpose_code"`
}

type pacs008Document struct {
	Transfer struct {
		GrpHdr struct {
			MsgId   string `xml:"MsgId"`
			CreDtTm string `xml:"CreDtTm"`
		} `xml:"GrpHdr"`
		Txs []pacs008Tx `xml:"CdtTrfTxInf"`
	} `xml:"FIToFICstmrCdtTrf"`
}

type pacs008Tx struct {
	PmtId struct {
		EndToEndId string `xml:"EndToEndId"`
		UETR       string `xml:"UETR"`
	} `xml:"PmtId"`
	IntrBkSttlmAmt activeAmount `xml:"IntrBkSttlmAmt"`
	IntrBkSttlmDt  string       `xml:"IntrBkSttlmDt"`
	Dbtr           partyXML     `xml:"Dbtr"`
	DbtrAcct       accountXML   `xml:"DbtrAcct"`
	DbtrAgt        agentXML     `xml:"DbtrAgt"`
	Cdtr           partyXML     `xml:"Cdtr"`
	CdtrAcct       accountXML   `xml:"CdtrAcct"`
	CdtrAgt        agentXML     `xml:"CdtrAgt"`
	Purp           struct {
		Cd string `xml:"Cd"`
	} `xml:"Purp"`
	RmtInf struct {
		Ustrd string `xml:"Ustrd"`
	} `xml:"RmtInf"`
}

type partyXML struct {
	Nm      string           `xml:"Nm"`
	PstlAdr postalAddressXML `xml:"PstlAdr"`
}

type accountXML struct {
	Id struct {
		IBAN string `xml:"IBAN"`
	} `xml:"Id"`
}

type agentXML struct {
	FinInstnId struct {
		BICFI string `xml:"BICFI"`
	} `xml:"FinInstnId"`
}

// ParsePacs008 parses a pacs.008 message.
func ParsePacs008(r io.Reader) (*CreditTransfer, error) {
	var doc pacs008Document
	if err := decode(r, &doc); err != nil {
		return nil, eris.Wrap(err, "iso: parse pacs.008")
	}
	if len(doc.Transfer.Txs) == 0 {
		return nil, eris.New("iso: pacs.008 contains no credit transfer transaction")
	}
	tx := doc.Transfer.Txs[0]

	amt := tx.IntrBkSttlmAmt.Value
	if amt == "" {
		amt = "0"
	}

	return &CreditTransfer{
		MessageType:      "pacs.008",
		UETR:             tx.PmtId.UETR,
		EndToEndID:       tx.PmtId.EndToEndId,
		CreationDateTime: doc.Transfer.GrpHdr.CreDtTm,
		SettlementDate:   tx.IntrBkSttlmDt,
		Debtor: PartyDetail{
			Name:        tx.Dbtr.Nm,
			Address:     tx.Dbtr.PstlAdr.address(),
			AccountIBAN: tx.DbtrAcct.Id.IBAN,
			AgentBIC:    tx.DbtrAgt.FinInstnId.BICFI,
		},
		Creditor: PartyDetail{
			Name:        tx.Cdtr.Nm,
			Address:     tx.Cdtr.PstlAdr.address(),
			AccountIBAN: tx.CdtrAcct.Id.IBAN,
			AgentBIC:    tx.CdtrAgt.FinInstnId.BICFI,
		},
		Amount:         model.Amount{Value: amt, Currency: tx.IntrBkSttlmAmt.currency()},
		RemittanceInfo: tx.RmtInf.Ustrd,
		PurposeCode:    tx.Purp.Cd,
	}, nil
}

// Transaction converts the parsed message into the investigation model.
func (ct *CreditTransfer) Transaction() model.Transaction {
	return model.Transaction{
		UETR:           ct.UETR,
		EndToEndID:     ct.EndToEndID,
		Debtor:         ct.Debtor.party(),
		Creditor:       ct.Creditor.party(),
		Amount:         ct.Amount,
		PurposeCode:    ct.PurposeCode,
		RemittanceInfo: ct.RemittanceInfo,
		SettlementDate: ct.SettlementDate,
	}
}

func (p PartyDetail) party() model.Party {
	return model.Party{
		Name:        p.Name,
		AccountIBAN: p.AccountIBAN,
		AgentBIC:    p.AgentBIC,
		Country:     p.Address.Country,
	}
}
