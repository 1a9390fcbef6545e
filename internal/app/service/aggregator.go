package service

import (
	"crosschain_portfolio/internal/domain/entity"

	"github.com/shopspring/decimal"
)

// Aggregate concatenates the Solana assets followed by the EVM assets. Order within
// each chain and every chain tag are kept; nothing is merged or re-sorted.
func Aggregate(solana, evm []entity.Asset) []entity.Asset {
	out := make([]entity.Asset, 0, len(solana)+len(evm))
	out = append(out, solana...)
	return append(out, evm...)
}

// Combine joins two chain snapshots into the portfolio view. While either chain is
// loading the view carries no assets, so a half-filled portfolio is never shown.
func Combine(solana, evm entity.ChainQuery) entity.PortfolioView {
	view := entity.PortfolioView{
		Assets:        []entity.Asset{},
		Loading:       solana.Loading || evm.Loading,
		SolanaError:   solana.Err,
		EVMError:      evm.Err,
		TotalValueUSD: decimal.Zero,
	}
	if view.Loading {
		return view
	}

	view.Assets = Aggregate(solana.Assets, evm.Assets)
	for _, a := range view.Assets {
		view.TotalValueUSD = view.TotalValueUSD.Add(a.Value())
	}
	return view
}
