package restapi

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"crosschain_portfolio/internal/app/port"
	"crosschain_portfolio/internal/domain/entity"
	"crosschain_portfolio/internal/presentation"

	"github.com/gin-gonic/gin"
)

const defaultWaitTimeout = 30 * time.Second

// APIScreenResponse wraps a rendered screen.
type APIScreenResponse struct {
	Data          presentation.Screen `json:"data"`
	Error         string              `json:"error,omitempty"`
	StatusMessage string              `json:"status_message,omitempty"`
}

// APIErrorResponse is returned when no screen can be rendered.
type APIErrorResponse struct {
	Error string `json:"error"`
}

// PortfolioHandler serves the session, portfolio and wallet endpoints.
type PortfolioHandler struct {
	presenter   *presentation.Presenter
	landingPath string
	waitTimeout time.Duration
	logger      port.Logger
}

// NewPortfolioHandler creates a new instance of PortfolioHandler.
func NewPortfolioHandler(presenter *presentation.Presenter, landingPath string, waitTimeout time.Duration, logger port.Logger) *PortfolioHandler {
	if waitTimeout <= 0 {
		waitTimeout = defaultWaitTimeout
	}
	return &PortfolioHandler{
		presenter:   presenter,
		landingPath: landingPath,
		waitTimeout: waitTimeout,
		logger:      logger,
	}
}

// GetSessionHandler returns the gate state, view and wallets of the caller. Ungated.
func (h *PortfolioHandler) GetSessionHandler(c *gin.Context) {
	session := sessionFrom(c)
	screen := h.presenter.Header(h.landingPath, session)
	c.JSON(http.StatusOK, APIScreenResponse{
		Data:          screen,
		StatusMessage: "Session state: " + screen.Gate.String(),
	})
}

// GetPortfolioHandler returns the screen with the aggregated portfolio. It waits for
// both chains unless wait=false is given.
func (h *PortfolioHandler) GetPortfolioHandler(c *gin.Context) {
	wait := true
	if v := c.Query("wait"); v != "" {
		parsed, err := strconv.ParseBool(v)
		if err != nil {
			c.JSON(http.StatusBadRequest, APIErrorResponse{Error: "invalid wait parameter: " + v})
			return
		}
		wait = parsed
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), h.waitTimeout)
	defer cancel()

	screen, err := h.presenter.Screen(ctx, h.landingPath, sessionFrom(c), wait)
	resp := APIScreenResponse{Data: screen}
	switch {
	case err != nil && (errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled)):
		resp.StatusMessage = "Portfolio is still loading."
	case err != nil:
		c.JSON(statusForGateError(err), APIScreenResponse{Data: screen, Error: err.Error()})
		return
	default:
		resp.StatusMessage = portfolioStatusMessage(screen.Portfolio)
	}
	c.JSON(http.StatusOK, resp)
}

// RefreshPortfolioHandler re-fetches both chains.
func (h *PortfolioHandler) RefreshPortfolioHandler(c *gin.Context) {
	session := sessionFrom(c)
	session.Refresh()
	c.JSON(http.StatusAccepted, APIScreenResponse{
		Data:          h.presenter.Header(h.landingPath, session),
		StatusMessage: "Refresh started.",
	})
}

// CopyWalletHandler copies the wallet of the chain in the path to the clipboard.
func (h *PortfolioHandler) CopyWalletHandler(c *gin.Context) {
	chain, err := entity.ParseChain(c.Param("chain"))
	if err != nil {
		c.JSON(http.StatusBadRequest, APIErrorResponse{Error: err.Error()})
		return
	}
	session := sessionFrom(c)
	if err := h.presenter.Copy(session, chain); err != nil {
		c.JSON(http.StatusNotFound, APIErrorResponse{Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, APIScreenResponse{
		Data:          h.presenter.Header(h.landingPath, session),
		StatusMessage: "Wallet address copied.",
	})
}

// PageHandler renders any non-API path. The entry path redirects; everything else
// gets the view the gate selects for it.
func (h *PortfolioHandler) PageHandler(c *gin.Context) {
	screen := h.presenter.Header(c.Request.URL.Path, sessionFrom(c))
	if screen.Redirect != "" {
		c.Redirect(http.StatusFound, screen.Redirect)
		return
	}
	c.JSON(http.StatusOK, APIScreenResponse{Data: screen})
}

func portfolioStatusMessage(p *presentation.PortfolioPanel) string {
	switch {
	case p == nil:
		return ""
	case p.Loading:
		return "Portfolio is still loading."
	case p.SolanaError != nil || p.EVMError != nil:
		return "Portfolio retrieved. Some chains could not be read."
	case len(p.Assets) == 0:
		return "No assets found."
	default:
		return "Portfolio retrieved successfully."
	}
}
