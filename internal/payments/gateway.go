package payments

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	log "github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
)

var ErrGatewayUnavailable = errors.New("payment gateway unavailable")

type LineItem struct {
	Name       string `json:"name"`
	PriceCents int64  `json:"price_cents"`
	Qty        int    `json:"qty"`
}

type SessionParams struct {
	OrderID     string     `json:"order_id"`
	OrderNumber string     `json:"order_number"`
	Currency    string     `json:"currency"`
	Items       []LineItem `json:"items"`
	SuccessURL  string     `json:"success_url"`
	CancelURL   string     `json:"cancel_url"`
}

type Session struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// SessionStatus is the gateway's view of a hosted checkout transaction.
type SessionStatus struct {
	ID       string `json:"id"`
	Paid     bool   `json:"paid"`
	OrderID  string `json:"order_id"`
	IntentID string `json:"payment_intent_id"`
}

// Gateway abstracts the hosted checkout provider so orchestration can be
// tested against a fake.
type Gateway interface {
	CreateSession(ctx context.Context, params SessionParams) (Session, error)
	GetSession(ctx context.Context, sessionID string) (SessionStatus, error)
}

// RESTGateway talks to the provider over its REST API. Calls pass through a
// circuit breaker so a degraded gateway fails checkout fast instead of tying
// up request handlers.
type RESTGateway struct {
	client  *resty.Client
	breaker *gobreaker.CircuitBreaker
}

func NewRESTGateway(baseURL, secretKey string) *RESTGateway {
	client := resty.New().
		SetBaseURL(baseURL).
		SetAuthToken(secretKey).
		SetTimeout(10 * time.Second).
		SetRetryCount(2).
		SetRetryWaitTime(300 * time.Millisecond)

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "payment-gateway",
		MaxRequests: 3,
		Interval:    15 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			ratio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && ratio >= 0.6
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.WithFields(log.Fields{"breaker": name, "from": from.String(), "to": to.String()}).
				Info("circuit breaker state changed")
		},
	})

	return &RESTGateway{client: client, breaker: breaker}
}

func (g *RESTGateway) CreateSession(ctx context.Context, params SessionParams) (Session, error) {
	out, err := g.breaker.Execute(func() (any, error) {
		var sess Session
		resp, err := g.client.R().
			SetContext(ctx).
			SetBody(params).
			SetResult(&sess).
			Post("/v1/checkout/sessions")
		if err != nil {
			return nil, err
		}
		if resp.IsError() {
			return nil, fmt.Errorf("gateway responded %s", resp.Status())
		}
		return sess, nil
	})
	if err != nil {
		return Session{}, fmt.Errorf("%w: %v", ErrGatewayUnavailable, err)
	}
	return out.(Session), nil
}

func (g *RESTGateway) GetSession(ctx context.Context, sessionID string) (SessionStatus, error) {
	out, err := g.breaker.Execute(func() (any, error) {
		var st SessionStatus
		resp, err := g.client.R().
			SetContext(ctx).
			SetResult(&st).
			Get("/v1/checkout/sessions/" + sessionID)
		if err != nil {
			return nil, err
		}
		if resp.IsError() {
			return nil, fmt.Errorf("gateway responded %s", resp.Status())
		}
		return st, nil
	})
	if err != nil {
		return SessionStatus{}, fmt.Errorf("%w: %v", ErrGatewayUnavailable, err)
	}
	return out.(SessionStatus), nil
}
