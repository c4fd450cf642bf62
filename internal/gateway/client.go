package gateway

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gorilla/websocket"
	"github.com/pkg/errors"

	"signal_bot/internal/models"
)

// Client — REST+WS клиент брокерского шлюза.
type Client struct {
	baseURL string
	wsURL   string
	apiKey  string

	http     *http.Client
	wsDialer *websocket.Dialer

	ws *wsFeed
}

func NewClient(baseURL, wsURL, apiKey string) *Client {
	c := &Client{
		baseURL:  baseURL,
		wsURL:    wsURL,
		apiKey:   apiKey,
		http:     &http.Client{Timeout: 10 * time.Second},
		wsDialer: websocket.DefaultDialer,
	}
	c.ws = newWSFeed(c)
	return c
}

func (c *Client) get(ctx context.Context, path string, q url.Values, out any) error {
	u := c.baseURL + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return errors.Wrap(err, "new request")
	}
	req.Header.Set("X-API-KEY", c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return errors.Wrap(err, "do request")
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Wrap(err, "read body")
	}
	if resp.StatusCode != http.StatusOK {
		return errors.Errorf("gateway %s: status %d: %s", path, resp.StatusCode, string(data))
	}
	if err := sonic.Unmarshal(data, out); err != nil {
		return errors.Wrap(err, "unmarshal response")
	}
	return nil
}

// HistoricalCandles — свечи истории. Пустой ответ — не ошибка: вызывающий
// уходит в bootstrap от seed-цены.
func (c *Client) HistoricalCandles(ctx context.Context, instrument string, interval time.Duration, from, to time.Time) ([]models.Candle, error) {
	q := url.Values{}
	q.Set("instrument", instrument)
	q.Set("interval", interval.String())
	q.Set("from", from.Format(time.RFC3339))
	q.Set("to", to.Format(time.RFC3339))

	var resp struct {
		Candles []struct {
			Ts     int64   `json:"ts"`
			Open   float64 `json:"o"`
			High   float64 `json:"h"`
			Low    float64 `json:"l"`
			Close  float64 `json:"c"`
			Volume float64 `json:"v"`
		} `json:"candles"`
	}
	if err := c.get(ctx, "/v1/candles", q, &resp); err != nil {
		return nil, err
	}

	out := make([]models.Candle, 0, len(resp.Candles))
	for _, r := range resp.Candles {
		if r.Close <= 0 {
			continue
		}
		out = append(out, models.Candle{
			Timestamp: time.UnixMilli(r.Ts),
			Open:      r.Open,
			High:      r.High,
			Low:       r.Low,
			Close:     r.Close,
			Volume:    r.Volume,
		})
	}
	return out, nil
}

// OptionQuote — LTP премии конкретного страйка. Нет котировки — 0 и nil:
// недоступность данных для пайплайна штатна.
func (c *Client) OptionQuote(ctx context.Context, instrument string, strike float64, dir models.Direction, expiry time.Time) (float64, error) {
	q := url.Values{}
	q.Set("instrument", instrument)
	q.Set("strike", fmt.Sprintf("%.0f", strike))
	q.Set("type", string(dir))
	q.Set("expiry", expiry.Format("2006-01-02"))

	var resp struct {
		LTP float64 `json:"ltp"`
	}
	if err := c.get(ctx, "/v1/option/quote", q, &resp); err != nil {
		return 0, err
	}
	return resp.LTP, nil
}

// OptionChainOI — распределение OI по страйкам.
func (c *Client) OptionChainOI(ctx context.Context, instrument string) ([]models.StrikeOI, error) {
	q := url.Values{}
	q.Set("instrument", instrument)

	var resp struct {
		Strikes []models.StrikeOI `json:"strikes"`
	}
	if err := c.get(ctx, "/v1/option/chain", q, &resp); err != nil {
		return nil, err
	}
	return resp.Strikes, nil
}

func (c *Client) ResolveExpiry(ctx context.Context, instrument string) (time.Time, error) {
	q := url.Values{}
	q.Set("instrument", instrument)

	var resp struct {
		Expiry string `json:"expiry"` // YYYY-MM-DD
	}
	if err := c.get(ctx, "/v1/option/expiry", q, &resp); err != nil {
		return time.Time{}, err
	}
	t, err := time.Parse("2006-01-02", resp.Expiry)
	if err != nil {
		return time.Time{}, errors.Wrap(err, "parse expiry")
	}
	return t, nil
}

// VIX — индекс волатильности. 0 при недоступности трактуется выше как
// "гейт не прошёл данные" и стратегии с VIX-потолком просто не фильтруются.
func (c *Client) VIX(ctx context.Context) (float64, error) {
	var resp struct {
		Value float64 `json:"value"`
	}
	if err := c.get(ctx, "/v1/vix", nil, &resp); err != nil {
		return 0, err
	}
	return resp.Value, nil
}

func (c *Client) SubscribeTicks(token string) error   { return c.ws.subscribe(token) }
func (c *Client) UnsubscribeTicks(token string) error { return c.ws.unsubscribe(token) }
func (c *Client) OnTick(h TickHandler)                { c.ws.onTick(h) }

// StartFeed — поднять WS-фид; StopFeed — мягко погасить.
func (c *Client) StartFeed(ctx context.Context) { c.ws.start(ctx) }
func (c *Client) StopFeed()                     { c.ws.stop() }

// FeedConnected — живо ли WS-соединение (для readiness).
func (c *Client) FeedConnected() bool { return c.ws.connected() }
