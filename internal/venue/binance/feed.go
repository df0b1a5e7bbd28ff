// Copyright (c) 2024 Neomantra Corp
//
// Binance WebSocket adapter using the combined-stream endpoint: one
// connection carries trade and bookTicker streams for every watched
// symbol. Instrument metadata (precision) is bootstrapped once from the
// REST exchangeInfo endpoint before streaming begins.

package binance

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	segjson "github.com/segmentio/encoding/json"

	"github.com/dawsh2/alphapulse/internal/lineage"
	"github.com/dawsh2/alphapulse/internal/schema"
	"github.com/dawsh2/alphapulse/internal/venue"
	"github.com/dawsh2/alphapulse/pkg/identity"
	"github.com/dawsh2/alphapulse/pkg/wire"
)

const (
	// DefaultStreamURL is the combined-stream endpoint; stream names are
	// appended as ?streams=sym@trade/sym@bookTicker/...
	DefaultStreamURL = "wss://stream.binance.com:9443/stream"
	// DefaultRestURL serves the one-shot exchangeInfo bootstrap.
	DefaultRestURL = "https://api.binance.com"

	staleTimeout = 60 * time.Second

	minBackoff = 100 * time.Millisecond
	maxBackoff = 5 * time.Second
)

// ToStreamSymbol converts canonical "BTC-USDT" to Binance's "btcusdt".
func ToStreamSymbol(symbol string) string {
	return strings.ToLower(strings.ReplaceAll(symbol, "-", ""))
}

type streamEnvelope struct {
	Stream string             `json:"stream"`
	Data   segjson.RawMessage `json:"data"`
}

type tradeEvent struct {
	EventType    string `json:"e"`
	EventTimeMs  int64  `json:"E"`
	Symbol       string `json:"s"`
	TradeId      uint64 `json:"t"`
	Price        string `json:"p"`
	Quantity     string `json:"q"`
	TradeTimeMs  int64  `json:"T"`
	IsBuyerMaker bool   `json:"m"`
}

type bookTickerEvent struct {
	UpdateId uint64 `json:"u"`
	Symbol   string `json:"s"`
	BidPrice string `json:"b"`
	BidQty   string `json:"B"`
	AskPrice string `json:"a"`
	AskQty   string `json:"A"`
}

type exchangeInfo struct {
	Symbols []struct {
		Symbol             string `json:"symbol"`
		BaseAssetPrecision uint8  `json:"baseAssetPrecision"`
	} `json:"symbols"`
}

// Feed streams Binance trades/bookTicker into the protocol.
type Feed struct {
	streamURL string
	restURL   string
	symbols   []string // canonical "BASE-QUOTE"
	producer  *venue.Producer
	tracer    *lineage.Tracer
	state     *venue.StateVar
	logger    *slog.Logger

	connMu sync.Mutex
	conn   *websocket.Conn

	idsMu     sync.Mutex
	ids       map[string]identity.InstrumentId // binance symbol (upper) -> id
	canonical map[string]string                // binance symbol (upper) -> canonical
	precision map[string]uint8                 // binance symbol (upper) -> base precision
}

// New creates a Binance feed for the given canonical symbols. Empty URLs
// use the public endpoints.
func New(streamURL, restURL string, symbols []string, producer *venue.Producer, tracer *lineage.Tracer, logger *slog.Logger) *Feed {
	if streamURL == "" {
		streamURL = DefaultStreamURL
	}
	if restURL == "" {
		restURL = DefaultRestURL
	}
	logger = logger.With("adapter", identity.Venue_Binance.String())
	f := &Feed{
		streamURL: streamURL,
		restURL:   restURL,
		symbols:   symbols,
		producer:  producer,
		tracer:    tracer,
		state:     venue.NewStateVar(logger),
		logger:    logger,
		ids:       make(map[string]identity.InstrumentId),
		canonical: make(map[string]string),
		precision: make(map[string]uint8),
	}
	for _, s := range symbols {
		f.canonical[strings.ToUpper(strings.ReplaceAll(s, "-", ""))] = s
	}
	return f
}

// Venue returns Venue_Binance.
func (f *Feed) Venue() identity.VenueId { return identity.Venue_Binance }

// State returns the adapter's lifecycle state variable.
func (f *Feed) State() *venue.StateVar { return f.state }

// Bootstrap fetches exchangeInfo once to learn per-symbol precision; a
// failure is non-fatal (precision defaults to 8).
func (f *Feed) Bootstrap(ctx context.Context) error {
	client := venue.NewRestClient()
	var info exchangeInfo
	if err := venue.GetJSON(ctx, client, f.restURL+"/api/v3/exchangeInfo", &info); err != nil {
		return err
	}
	f.idsMu.Lock()
	for _, s := range info.Symbols {
		if _, watched := f.canonical[s.Symbol]; watched {
			f.precision[s.Symbol] = s.BaseAssetPrecision
		}
	}
	f.idsMu.Unlock()
	return nil
}

// Run connects and maintains the feed until ctx is cancelled.
func (f *Feed) Run(ctx context.Context) error {
	if err := f.Bootstrap(ctx); err != nil {
		f.logger.Warn("exchangeInfo bootstrap failed", "error", err)
	}

	backoff := minBackoff
	for {
		err := f.connectAndStream(ctx)
		f.state.Set(venue.StateDisconnected)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		f.invalidateAll(wire.InvalidationReason_Disconnection)
		f.logger.Warn("feed disconnected, reconnecting", "error", err, "backoff", backoff)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
		if backoff > maxBackoff {
			backoff = maxBackoff
		}
	}
}

// streamPath builds the combined-stream URL; subscriptions ride the URL,
// so there is no separate subscribe round-trip to time out on.
func (f *Feed) streamPath() string {
	names := make([]string, 0, len(f.symbols)*2)
	for _, s := range f.symbols {
		stream := ToStreamSymbol(s)
		names = append(names, stream+"@trade", stream+"@bookTicker")
	}
	return f.streamURL + "?streams=" + strings.Join(names, "/")
}

func (f *Feed) connectAndStream(ctx context.Context) error {
	f.state.Set(venue.StateConnecting)
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, f.streamPath(), nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	f.connMu.Lock()
	f.conn = conn
	f.connMu.Unlock()
	defer func() {
		f.connMu.Lock()
		conn.Close()
		f.conn = nil
		f.connMu.Unlock()
	}()

	f.state.Set(venue.StateStreaming)
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		conn.SetReadDeadline(time.Now().Add(staleTimeout))
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("read: %w", err)
		}
		f.dispatch(msg)
	}
}

func (f *Feed) dispatch(data []byte) {
	var env streamEnvelope
	if err := segjson.Unmarshal(data, &env); err != nil || env.Stream == "" {
		f.logger.Debug("ignoring malformed frame", "error", err)
		return
	}
	switch {
	case strings.HasSuffix(env.Stream, "@trade"):
		f.onTrade(env.Data, data)
	case strings.HasSuffix(env.Stream, "@bookTicker"):
		f.onBookTicker(env.Data)
	default:
		f.logger.Debug("unknown stream", "stream", env.Stream)
	}
}

func (f *Feed) onTrade(payload segjson.RawMessage, raw []byte) {
	var evt tradeEvent
	if err := segjson.Unmarshal(payload, &evt); err != nil {
		f.logger.Warn("bad trade event", "error", err)
		return
	}

	price, err1 := venue.ParseFixed8(evt.Price)
	qty, err2 := venue.ParseFixed8(evt.Quantity)
	if err1 != nil || err2 != nil {
		f.logger.Warn("bad trade fields", "symbol", evt.Symbol)
		return
	}

	// m=true means the buyer was the maker, so the taker sold.
	side := wire.Side_Buy
	if evt.IsBuyerMaker {
		side = wire.Side_Sell
	}

	trade := &wire.Trade{
		InstrumentId: f.instrument(evt.Symbol),
		Price:        price,
		Volume:       uint64(qty),
		Side:         side,
	}
	if err := venue.Emit(f.producer, trade); err != nil {
		f.logger.Warn("trade emit failed", "error", err)
		return
	}

	if trace := f.tracer.Trace(raw, uint64(evt.TradeTimeMs)*uint64(time.Millisecond)); trace != nil {
		if err := venue.Emit(f.producer, trace); err != nil {
			f.logger.Warn("trace emit failed", "error", err)
		}
	}
}

func (f *Feed) onBookTicker(payload segjson.RawMessage) {
	var evt bookTickerEvent
	if err := segjson.Unmarshal(payload, &evt); err != nil {
		f.logger.Warn("bad bookTicker event", "error", err)
		return
	}

	bidPx, err1 := venue.ParseFixed8(evt.BidPrice)
	bidSz, err2 := venue.ParseFixed8(evt.BidQty)
	askPx, err3 := venue.ParseFixed8(evt.AskPrice)
	askSz, err4 := venue.ParseFixed8(evt.AskQty)
	if err1 != nil || err2 != nil || err3 != nil || err4 != nil {
		f.logger.Warn("bad bookTicker fields", "symbol", evt.Symbol)
		return
	}

	quote := &wire.Quote{
		InstrumentId: f.instrument(evt.Symbol),
		BidPrice:     bidPx,
		AskPrice:     askPx,
		BidSize:      uint64(bidSz),
		AskSize:      uint64(askSz),
	}
	if err := venue.Emit(f.producer, quote); err != nil {
		f.logger.Warn("quote emit failed", "error", err)
	}
}

func (f *Feed) instrument(binanceSymbol string) identity.InstrumentId {
	f.idsMu.Lock()
	id, ok := f.ids[binanceSymbol]
	if ok {
		f.idsMu.Unlock()
		return id
	}
	symbol, ok := f.canonical[binanceSymbol]
	if !ok {
		symbol = binanceSymbol
	}
	decimals, ok := f.precision[binanceSymbol]
	if !ok {
		decimals = 8
	}
	f.idsMu.Unlock()

	id = identity.NewCexSpot(identity.Venue_Binance, symbol)
	if err := f.producer.Discover(schema.CachedRecord{
		Id:       id,
		Symbol:   symbol,
		Decimals: decimals,
	}); err != nil {
		f.logger.Warn("discovery rejected", "symbol", symbol, "error", err)
	}

	f.idsMu.Lock()
	f.ids[binanceSymbol] = id
	f.idsMu.Unlock()
	return id
}

func (f *Feed) invalidateAll(reason wire.InvalidationReason) {
	f.idsMu.Lock()
	ids := make([]identity.InstrumentId, 0, len(f.ids))
	for _, id := range f.ids {
		ids = append(ids, id)
	}
	f.idsMu.Unlock()
	if len(ids) == 0 {
		return
	}
	if err := f.producer.Invalidate(identity.Venue_Binance, reason, ids); err != nil {
		f.logger.Warn("invalidation emit failed", "error", err)
	}
}
