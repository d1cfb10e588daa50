/**
 * @description
 * Founder positions: cash each founder advanced to the company versus cash
 * taken out, per currency.
 */
package domain

// Position is one founder's position in one currency.
type Position struct {
	AdminID   string `json:"adminId"`
	AdminName string `json:"adminName"`
	Currency  string `json:"currency"`
	Advanced  int64  `json:"advanced"`
	Received  int64  `json:"received"`
}

// Net is advanced − received. A positive net means the company owes the founder.
func (p Position) Net() int64 {
	return p.Advanced - p.Received
}

// RebalancingSuggestion is an advisory transfer between two founders.
type RebalancingSuggestion struct {
	FromAdmin     string `json:"fromAdmin"`
	FromAdminName string `json:"fromAdminName,omitempty"`
	ToAdmin       string `json:"toAdmin"`
	ToAdminName   string `json:"toAdminName,omitempty"`
	Amount        int64  `json:"amount"`
	Currency      string `json:"currency"`
}
