// Package backend é o cliente REST do backend demo (market-service ou api-gateway).
package backend

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/radieske/foundersnet-market-poc/internal/shared/apperr"
	"github.com/radieske/foundersnet-market-poc/pkg/contracts/market"
)

type Client struct {
	client *resty.Client
}

// New cria o cliente sem política de retry: toda falha encerra a ação do usuário
func New(baseURL string, timeout time.Duration) *Client {
	baseURL = strings.TrimSuffix(baseURL, "/")
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	c := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json").
		SetHeader("User-Agent", "foundersnet-market-cli")
	return &Client{client: c}
}

func (c *Client) r(ctx context.Context) *resty.Request {
	return c.client.R().SetContext(ctx).SetError(&market.ErrorResponse{})
}

func (c *Client) Health(ctx context.Context) (market.Health, error) {
	var out market.Health
	resp, err := c.r(ctx).SetResult(&out).Get("/api/health")
	return out, check("backend.health", resp, err)
}

func (c *Client) Events(ctx context.Context) ([]market.Event, error) {
	var out []market.Event
	resp, err := c.r(ctx).SetResult(&out).Get("/api/events")
	return out, check("backend.events", resp, err)
}

func (c *Client) Event(ctx context.Context, id int64) (market.Event, error) {
	var out market.Event
	resp, err := c.r(ctx).SetResult(&out).
		SetPathParam("id", strconv.FormatInt(id, 10)).
		Get("/api/events/{id}")
	return out, check("backend.event", resp, err)
}

func (c *Client) EventBets(ctx context.Context, id int64) ([]market.Bet, error) {
	var out []market.Bet
	resp, err := c.r(ctx).SetResult(&out).
		SetPathParam("id", strconv.FormatInt(id, 10)).
		Get("/api/events/{id}/bets")
	return out, check("backend.event_bets", resp, err)
}

func (c *Client) UserBets(ctx context.Context, address string) ([]market.Bet, error) {
	var out []market.Bet
	resp, err := c.r(ctx).SetResult(&out).
		SetPathParam("address", address).
		Get("/api/users/{address}/bets")
	return out, check("backend.user_bets", resp, err)
}

func (c *Client) Stats(ctx context.Context) (market.Stats, error) {
	var out market.Stats
	resp, err := c.r(ctx).SetResult(&out).Get("/api/stats")
	return out, check("backend.stats", resp, err)
}

func (c *Client) Accounts(ctx context.Context) ([]market.AccountBalance, error) {
	var out []market.AccountBalance
	resp, err := c.r(ctx).SetResult(&out).Get("/api/accounts")
	return out, check("backend.accounts", resp, err)
}

func (c *Client) Account(ctx context.Context, address string) (market.AccountBalance, error) {
	var out market.AccountBalance
	resp, err := c.r(ctx).SetResult(&out).
		SetPathParam("address", address).
		Get("/api/accounts/{address}")
	return out, check("backend.account", resp, err)
}

// Balance implementa balance.Source sobre GET /api/accounts/{address}
func (c *Client) Balance(ctx context.Context, address string) (decimal.Decimal, error) {
	acc, err := c.Account(ctx, address)
	if err != nil {
		return decimal.Zero, err
	}
	return acc.BalanceLamports, nil
}

func (c *Client) CreateEvent(ctx context.Context, req market.CreateEventRequest) (market.Event, error) {
	var out market.Event
	resp, err := c.r(ctx).SetBody(req).SetResult(&out).Post("/api/events")
	return out, check("backend.create_event", resp, err)
}

func (c *Client) PlaceBet(ctx context.Context, req market.PlaceBetRequest) (market.PlaceBetResponse, error) {
	var out market.PlaceBetResponse
	resp, err := c.r(ctx).SetBody(req).SetResult(&out).Post("/api/bets")
	return out, check("backend.place_bet", resp, err)
}

func (c *Client) ResolveEvent(ctx context.Context, id int64, req market.ResolveEventRequest) (market.Event, error) {
	var out market.Event
	resp, err := c.r(ctx).SetBody(req).SetResult(&out).
		SetPathParam("id", strconv.FormatInt(id, 10)).
		Post("/api/events/{id}/resolve")
	return out, check("backend.resolve_event", resp, err)
}

func (c *Client) Claim(ctx context.Context, req market.ClaimRequest) (market.ClaimResponse, error) {
	var out market.ClaimResponse
	resp, err := c.r(ctx).SetBody(req).SetResult(&out).Post("/api/bets/claim")
	return out, check("backend.claim", resp, err)
}

// check traduz falha de transporte e status não-2xx para a taxonomia de erros
func check(op string, resp *resty.Response, err error) error {
	if err != nil {
		return apperr.Network(op, err)
	}
	if resp.IsSuccess() {
		return nil
	}
	msg := resp.Status()
	if e, ok := resp.Error().(*market.ErrorResponse); ok && e.Error != "" {
		msg = e.Error
	}
	switch resp.StatusCode() {
	case http.StatusNotFound:
		return &apperr.Error{Kind: apperr.KindNotFound, Op: op, Err: errors.New(msg)}
	case http.StatusBadRequest, http.StatusForbidden, http.StatusConflict:
		return apperr.Validation(op, "%s", msg)
	default:
		return apperr.Network(op, errors.Errorf("http %d: %s", resp.StatusCode(), msg))
	}
}
