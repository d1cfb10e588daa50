/**
 * @description
 * Founder positions and greedy settle-up suggestions.
 *
 * @notes
 * - net = advanced − received. A positive net means the company owes the founder.
 * - Suggestions move money from founders with a negative net to founders with a
 *   positive net until one side is settled. They are advisory and never touch a
 *   ledger.
 * - Target and Deviation report each founder's equal share of the currency's
 *   total net. They are informational only and do not drive suggestions.
 */
package settlement

import (
	"sort"

	"github.com/mentora/treasury-service/internal/domain"
)

// FounderBalance is one founder's aggregated position in one currency.
type FounderBalance struct {
	AdminID   string `json:"adminId"`
	AdminName string `json:"adminName"`
	Currency  string `json:"currency"`
	Advanced  int64  `json:"advanced"`
	Received  int64  `json:"received"`
	Net       int64  `json:"net"`
	Target    int64  `json:"target"`
	Deviation int64  `json:"deviation"`
}

// CurrencySummary aggregates every founder in a currency.
type CurrencySummary struct {
	Currency      string `json:"currency"`
	TotalAdvanced int64  `json:"totalAdvanced"`
	TotalReceived int64  `json:"totalReceived"`
	TotalNet      int64  `json:"totalNet"`
	Founders      int    `json:"founders"`
}

// Rebalancing is the positions report.
type Rebalancing struct {
	Balances    []FounderBalance               `json:"balances"`
	Totals      map[string]CurrencySummary     `json:"totals"`
	Suggestions []domain.RebalancingSuggestion `json:"suggestions"`
}

// Rebalance aggregates positions per founder and currency and computes the
// transfers that settle debtors against creditors.
func Rebalance(positions []domain.Position) Rebalancing {
	names := make(map[string]string)
	type key struct{ admin, currency string }
	agg := make(map[key]*FounderBalance)
	currencySet := make(map[string]struct{})

	for _, p := range positions {
		if p.AdminName != "" || names[p.AdminID] == "" {
			names[p.AdminID] = p.AdminName
		}
		currencySet[p.Currency] = struct{}{}
		k := key{admin: p.AdminID, currency: p.Currency}
		b := agg[k]
		if b == nil {
			b = &FounderBalance{AdminID: p.AdminID, Currency: p.Currency}
			agg[k] = b
		}
		b.Advanced += p.Advanced
		b.Received += p.Received
	}

	admins := make([]string, 0, len(names))
	for id := range names {
		admins = append(admins, id)
	}
	sort.Strings(admins)
	currencies := make([]string, 0, len(currencySet))
	for c := range currencySet {
		currencies = append(currencies, c)
	}
	sort.Strings(currencies)

	result := Rebalancing{
		Balances:    []FounderBalance{},
		Totals:      map[string]CurrencySummary{},
		Suggestions: []domain.RebalancingSuggestion{},
	}

	for _, c := range currencies {
		balances := make([]FounderBalance, 0, len(admins))
		summary := CurrencySummary{Currency: c, Founders: len(admins)}
		for _, id := range admins {
			b := FounderBalance{AdminID: id, Currency: c}
			if found := agg[key{admin: id, currency: c}]; found != nil {
				b = *found
			}
			b.AdminName = names[id]
			b.Net = b.Advanced - b.Received
			summary.TotalAdvanced += b.Advanced
			summary.TotalReceived += b.Received
			summary.TotalNet += b.Net
			balances = append(balances, b)
		}

		targets := equalShares(summary.TotalNet, len(balances))
		for i := range balances {
			balances[i].Target = targets[i]
			balances[i].Deviation = balances[i].Net - targets[i]
		}

		result.Balances = append(result.Balances, balances...)
		result.Totals[c] = summary
		result.Suggestions = append(result.Suggestions, settle(c, balances)...)
	}

	return result
}

// equalShares splits total into n integer shares; the first total mod n shares
// receive one extra cent.
func equalShares(total int64, n int) []int64 {
	shares := make([]int64, n)
	if n == 0 {
		return shares
	}
	q := total / int64(n)
	r := total % int64(n)
	if r < 0 {
		q--
		r += int64(n)
	}
	for i := range shares {
		shares[i] = q
		if int64(i) < r {
			shares[i]++
		}
	}
	return shares
}

type party struct {
	id     string
	name   string
	amount int64
}

// settle matches the largest creditor with the largest debtor until either
// side is empty. Founders at zero take no part. Ties are broken by admin ID.
func settle(currency string, balances []FounderBalance) []domain.RebalancingSuggestion {
	var creditors, debtors []*party
	for _, b := range balances {
		switch {
		case b.Net > 0:
			creditors = append(creditors, &party{id: b.AdminID, name: b.AdminName, amount: b.Net})
		case b.Net < 0:
			debtors = append(debtors, &party{id: b.AdminID, name: b.AdminName, amount: -b.Net})
		}
	}

	var out []domain.RebalancingSuggestion
	for {
		c := largest(creditors)
		d := largest(debtors)
		if c == nil || d == nil {
			return out
		}
		amount := min(c.amount, d.amount)
		c.amount -= amount
		d.amount -= amount
		out = append(out, domain.RebalancingSuggestion{
			FromAdmin:     d.id,
			FromAdminName: d.name,
			ToAdmin:       c.id,
			ToAdminName:   c.name,
			Amount:        amount,
			Currency:      currency,
		})
	}
}

func largest(parties []*party) *party {
	var best *party
	for _, p := range parties {
		if p.amount == 0 {
			continue
		}
		if best == nil || p.amount > best.amount || (p.amount == best.amount && p.id < best.id) {
			best = p
		}
	}
	return best
}
