package iso

import (
	"io"

	"github.com/rotisserie/eris"

	"github.com/fintel-ai/tribunal/internal/model"
)

// Balance is one opening or closing balance from a camt.053 statement.
type Balance struct {
	Type   string       `json:"type"`
	Amount model.Amount `json:"amount"`
	Date   string       `json:"date"`
}

// StatementEntry is one booked transaction from a camt.053 statement.
type StatementEntry struct {
	Amount      model.Amount `json:"amount"`
	CreditDebit string       `json:"credit_debit"`
	Status      string       `json:"status"`
	BookingDate string       `json:"booking_date"`
	ValueDate   string       `json:"value_date"`
	Reference   string       `json:"reference"`
}

// Statement is a parsed camt.053 bank-to-customer statement. Multi
// statement files keep only the first statement block.
type Statement struct {
	MessageType      string           `json:"message_type"`
	MessageID        string           `json:"message_id"`
	CreationDateTime string           `json:"creation_datetime"`
	StatementID      string           `json:"statement_id"`
	AccountIBAN      string           `json:"account_iban"`
	AccountCurrency  string           `json:"account_currency"`
	Balances         []Balance        `json:"balances"`
	Entries          []StatementEntry `json:"entries"`
}

type camt053Document struct {
	Stmt struct {
		GrpHdr struct {
			MsgId   string `xml:"MsgId"`
			CreDtTm string `xml:"CreDtTm"`
		} `xml:"GrpHdr"`
		Statements []struct {
			Id   string `xml:"Id"`
			Acct struct {
				Id struct {
					IBAN string `xml:"IBAN"`
				} `xml:"Id"`
				Ccy string `xml:"Ccy"`
			} `xml:"Acct"`
			Bal []struct {
				Tp struct {
					CdOrPrtry struct {
						Cd string `xml:"Cd"`
					} `xml:"CdOrPrtry"`
				} `xml:"Tp"`
				Amt activeAmount `xml:"Amt"`
				Dt  struct {
					Dt string `xml:"Dt"`
				} `xml:"Dt"`
			} `xml:"Bal"`
			Ntry []struct {
				Amt       activeAmount `xml:"Amt"`
				CdtDbtInd string       `xml:"CdtDbtInd"`
				Sts       string       `xml:"Sts"`
				BookgDt   struct {
					Dt string `xml:"Dt"`
				} `xml:"BookgDt"`
				ValDt struct {
					Dt string `xml:"Dt"`
				} `xml:"ValDt"`
				NtryRef string `xml:"NtryRef"`
			} `xml:"Ntry"`
		} `xml:"Stmt"`
	} `xml:"BkToCstmrStmt"`
}

// ParseCamt053 parses a camt.053 message.
func ParseCamt053(r io.Reader) (*Statement, error) {
	var doc camt053Document
	if err := decode(r, &doc); err != nil {
		return nil, eris.Wrap(err, "iso: parse camt.053")
	}
	if len(doc.Stmt.Statements) == 0 {
		return nil, eris.New("iso: camt.053 contains no statement")
	}
	stmt := doc.Stmt.Statements[0]

	out := &Statement{
		MessageType:      "camt.053",
		MessageID:        doc.Stmt.GrpHdr.MsgId,
		CreationDateTime: doc.Stmt.GrpHdr.CreDtTm,
		StatementID:      stmt.Id,
		AccountIBAN:      stmt.Acct.Id.IBAN,
		AccountCurrency:  stmt.Acct.Ccy,
		Balances:         make([]Balance, 0, len(stmt.Bal)),
		Entries:          make([]StatementEntry, 0, len(stmt.Ntry)),
	}
	for _, bal := range stmt.Bal {
		amt := bal.Amt.Value
		if amt == "" {
			amt = "0"
		}
		out.Balances = append(out.Balances, Balance{
			Type:   bal.Tp.CdOrPrtry.Cd,
			Amount: model.Amount{Value: amt, Currency: bal.Amt.currency()},
			Date:   bal.Dt.Dt,
		})
	}
	for _, ntry := range stmt.Ntry {
		amt := ntry.Amt.Value
		if amt == "" {
			amt = "0"
		}
		out.Entries = append(out.Entries, StatementEntry{
			Amount:      model.Amount{Value: amt, Currency: ntry.Amt.currency()},
			CreditDebit: ntry.CdtDbtInd,
			Status:      ntry.Sts,
			BookingDate: ntry.BookgDt.Dt,
			ValueDate:   ntry.ValDt.Dt,
			Reference:   ntry.NtryRef,
		})
	}
	return out, nil
}
