// Package iso parses ISO 20022 payment messages (pacs.008, pain.001,
// camt.053) into the investigation's transaction model and runs
// deterministic pattern checks over statement entries.
package iso

import (
	"encoding/xml"
	"io"

	"github.com/rotisserie/eris"
	"golang.org/x/text/encoding/htmlindex"
)

// decode unmarshals one message document, honoring the declared charset.
func decode(r io.Reader, v any) error {
	dec := xml.NewDecoder(r)
	dec.CharsetReader = func(charset string, input io.Reader) (io.Reader, error) {
		enc, err := htmlindex.Get(charset)
		if err != nil {
			return nil, eris.Wrapf(err, "iso: unsupported charset %q", charset)
		}
		return enc.NewDecoder().Reader(input), nil
	}
	if err := dec.Decode(v); err != nil {
		return eris.Wrap(err, "iso: decode document")
	}
	return nil
}

// activeAmount is the shared currency-attributed amount element.
type activeAmount struct {
	Value string `xml:",chardata"`
	Ccy   string `xml:"Ccy,attr"`
}

func (a activeAmount) currency() string {
	if a.Ccy == "" {
		return "EUR"
	}
	return a.Ccy
}

// PostalAddress is the structured or unstructured party address.
type PostalAddress struct {
	Street       string   `json:"street,omitempty"`
	Building     string   `json:"building,omitempty"`
	PostalCode   string   `json:"postal_code,omitempty"`
	Town         string   `json:"town,omitempty"`
	Country      string   `json:"country,omitempty"`
	AddressLines []string `json:"address_lines,omitempty"`
}

// PartyDetail is one side of a parsed payment with its account and agent.
type PartyDetail struct {
	Name        string        `json:"name"`
	Address     PostalAddress `json:"address,omitempty"`
	AccountIBAN string        `json:"account_iban,omitempty"`
	AgentBIC    string        `json:"agent_bic,omitempty"`
}

type postalAddressXML struct {
	StrtNm  string   `xml:"StrtNm"`
	BldgNb  string   `xml:"BldgNb"`
	PstCd   string   `xml:"PstCd"`
	TwnNm   string   `xml:"TwnNm"`
	Ctry    string   `xml:"Ctry"`
	AdrLine []string `xml:"AdrLine"`
}

func (p postalAddressXML) address() PostalAddress {
	return PostalAddress{
		Street:       p.StrtNm,
		Building:     p.BldgNb,
		PostalCode:   p.PstCd,
		Town:         p.TwnNm,
		Country:      p.Ctry,
		AddressLines: p.AdrLine,
	}
}
