package services

import (
	"strings"

	"github.com/shopspring/decimal"

	"bankfeed/models"
)

const (
	ClassificationAsset     = "asset"
	ClassificationLiability = "liability"
)

// Account types that count against the owner. Everything else is an asset.
var liabilityTypes = map[string]bool{
	"credit": true,
	"loan":   true,
}

func ClassifyAccountType(accountType string) string {
	if liabilityTypes[strings.ToLower(strings.TrimSpace(accountType))] {
		return ClassificationLiability
	}
	return ClassificationAsset
}

// BalanceSummary totals current balances by classification. Decimal keeps the
// sums exact; the JSON encoding is the quoted-number form.
type BalanceSummary struct {
	Assets      decimal.Decimal `json:"assets"`
	Liabilities decimal.Decimal `json:"liabilities"`
	NetWorth    decimal.Decimal `json:"net_worth"`
}

func SummarizeBalances(accounts []models.Account) BalanceSummary {
	assets := decimal.Zero
	liabilities := decimal.Zero

	for _, a := range accounts {
		if a.Balances.Current == nil {
			continue
		}
		amount := decimal.NewFromFloat(*a.Balances.Current)
		if a.Classification == ClassificationLiability {
			liabilities = liabilities.Add(amount)
		} else {
			assets = assets.Add(amount)
		}
	}

	return BalanceSummary{
		Assets:      assets,
		Liabilities: liabilities,
		NetWorth:    assets.Sub(liabilities),
	}
}
