package presentation

import (
	"context"
	"time"

	"crosschain_portfolio/internal/app/port"
	"crosschain_portfolio/internal/app/service"
	"crosschain_portfolio/internal/domain/entity"

	"github.com/patrickmn/go-cache"
)

// WalletsPanel is the wallet header of the app view.
type WalletsPanel struct {
	Solana      string `json:"solana,omitempty"`
	EVM         string `json:"evm,omitempty"`
	SolanaShort string `json:"solanaShort,omitempty"`
	EVMShort    string `json:"evmShort,omitempty"`
}

// CopiedPanel holds the copy indicators of both wallets.
type CopiedPanel struct {
	Solana bool `json:"solana"`
	EVM    bool `json:"evm"`
}

// AssetRow is one rendered asset. Price is shown as-is, Value with two decimals.
type AssetRow struct {
	Address string       `json:"address"`
	Chain   entity.Chain `json:"chain"`
	Name    string       `json:"name"`
	Symbol  string       `json:"symbol"`
	LogoURI string       `json:"logoURI,omitempty"`
	Price   string       `json:"price"`
	Value   string       `json:"value"`
	Amount  string       `json:"amount"`
}

// PortfolioPanel is the rendered portfolio. Assets is empty while loading.
type PortfolioPanel struct {
	Loading     bool               `json:"loading"`
	Assets      []AssetRow         `json:"assets"`
	TotalValue  string             `json:"totalValue"`
	SolanaError *entity.FetchError `json:"solanaError,omitempty"`
	EVMError    *entity.FetchError `json:"evmError,omitempty"`
}

// Screen is everything a client renders for one request.
type Screen struct {
	View      entity.View      `json:"view"`
	Gate      entity.GateState `json:"gate"`
	Redirect  string           `json:"redirect,omitempty"`
	Wallets   *WalletsPanel    `json:"wallets,omitempty"`
	Copied    CopiedPanel      `json:"copied"`
	Portfolio *PortfolioPanel  `json:"portfolio,omitempty"`
}

// Presenter builds screens from session state and owns the copy trackers.
type Presenter struct {
	gate         *service.AuthGate
	clipboard    port.Clipboard
	copyFeedback time.Duration
	logger       port.Logger
	trackers     *cache.Cache // session id -> *CopyTracker
}

// NewPresenter creates a presenter. Trackers of idle sessions expire after trackerTTL.
func NewPresenter(gate *service.AuthGate, cb port.Clipboard, copyFeedback, trackerTTL time.Duration, logger port.Logger) *Presenter {
	if trackerTTL <= 0 {
		trackerTTL = 30 * time.Minute
	}
	trackers := cache.New(trackerTTL, trackerTTL/2)
	trackers.OnEvicted(func(_ string, v interface{}) {
		if t, ok := v.(*CopyTracker); ok {
			t.Stop()
		}
	})
	return &Presenter{
		gate:         gate,
		clipboard:    cb,
		copyFeedback: copyFeedback,
		logger:       logger,
		trackers:     trackers,
	}
}

// Screen renders the view for path. The portfolio panel is only filled in the app
// view; with wait it blocks until both chains settled or ctx ended.
func (p *Presenter) Screen(ctx context.Context, path string, session port.PortfolioSession, wait bool) (Screen, error) {
	screen := p.Header(path, session)
	if screen.View != entity.ViewApp {
		return screen, nil
	}

	view, err := session.Portfolio(ctx, wait)
	screen.Portfolio = NewPortfolioPanel(view)
	return screen, err
}

// Header renders the gate decision and the wallet header of path, without the portfolio.
func (p *Presenter) Header(path string, session port.PortfolioSession) Screen {
	state := session.State()
	decision := p.gate.Route(path, state.Auth)

	screen := Screen{
		View:     decision.View,
		Gate:     decision.Gate,
		Redirect: decision.Redirect,
		Copied:   p.tracker(session).Copied(),
	}
	if state.Auth.Authenticated {
		screen.Wallets = NewWalletsPanel(state.Wallets)
	}
	return screen
}

// Copy copies the session's wallet of chain and raises its indicator.
func (p *Presenter) Copy(session port.PortfolioSession, chain entity.Chain) error {
	address := session.State().Wallets.Address(chain)
	return p.tracker(session).Copy(chain, address)
}

func (p *Presenter) tracker(session port.PortfolioSession) *CopyTracker {
	id := session.ID()
	if v, ok := p.trackers.Get(id); ok {
		return v.(*CopyTracker)
	}
	t := NewCopyTracker(p.clipboard, p.copyFeedback, p.logger, func() {
		session.Publish(entity.EventCopied)
	})
	if err := p.trackers.Add(id, t, cache.DefaultExpiration); err != nil {
		// Another request created it first.
		if v, ok := p.trackers.Get(id); ok {
			return v.(*CopyTracker)
		}
	}
	return t
}

// NewWalletsPanel builds the wallet header, shortening each address.
func NewWalletsPanel(w entity.WalletPair) *WalletsPanel {
	return &WalletsPanel{
		Solana:      w.SolanaWallet,
		EVM:         w.EVMWallet,
		SolanaShort: ShortAddress(w.SolanaWallet),
		EVMShort:    ShortAddress(w.EVMWallet),
	}
}

// NewPortfolioPanel renders a portfolio view.
func NewPortfolioPanel(view entity.PortfolioView) *PortfolioPanel {
	panel := &PortfolioPanel{
		Loading:     view.Loading,
		Assets:      make([]AssetRow, 0, len(view.Assets)),
		TotalValue:  view.TotalValueUSD.StringFixed(2),
		SolanaError: view.SolanaError,
		EVMError:    view.EVMError,
	}
	for _, a := range view.Assets {
		panel.Assets = append(panel.Assets, AssetRow{
			Address: a.Address,
			Chain:   a.Chain,
			Name:    a.Name,
			Symbol:  a.Symbol,
			LogoURI: a.LogoURI,
			Price:   a.Price.String(),
			Value:   a.Value().StringFixed(2),
			Amount:  a.Amount.String(),
		})
	}
	return panel
}

// ShortAddress renders the first 4 and last 5 characters of an address.
func ShortAddress(addr string) string {
	if len(addr) <= 9 {
		return addr
	}
	return addr[:4] + "..." + addr[len(addr)-5:]
}
