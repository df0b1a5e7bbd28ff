// Copyright (c) 2024 Neomantra Corp
//
// Kraken WebSocket adapter (v1 public feed). Kraken frames data messages
// as JSON arrays [channelID, payload, channelName, pair] and uses its own
// asset codes (XBT for BTC); subscription planning translates canonical
// "BASE-QUOTE" symbols to Kraken pairs and back.

package kraken

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

// DefaultURL is the public Kraken WebSocket endpoint.
const DefaultURL = "wss://ws.kraken.com"

const (
	staleTimeout = 60 * time.Second
	writeTimeout = 10 * time.Second

	minBackoff = 100 * time.Millisecond
	maxBackoff = 5 * time.Second
)

// krakenAsset maps canonical asset codes to Kraken's legacy codes.
var krakenAsset = map[string]string{
	"BTC":  "XBT",
	"DOGE": "XDG",
}

var canonicalAsset = func() map[string]string {
	m := make(map[string]string, len(krakenAsset))
	for canonical, kraken := range krakenAsset {
		m[kraken] = canonical
	}
	return m
}()

// ToKrakenPair converts canonical "BTC-USD" to Kraken's "XBT/USD".
func ToKrakenPair(symbol string) string {
	base, quote, ok := strings.Cut(symbol, "-")
	if !ok {
		return symbol
	}
	if k, ok := krakenAsset[base]; ok {
		base = k
	}
	if k, ok := krakenAsset[quote]; ok {
		quote = k
	}
	return base + "/" + quote
}

// FromKrakenPair converts Kraken's "XBT/USD" to canonical "BTC-USD".
func FromKrakenPair(pair string) string {
	base, quote, ok := strings.Cut(pair, "/")
	if !ok {
		return pair
	}
	if c, ok := canonicalAsset[base]; ok {
		base = c
	}
	if c, ok := canonicalAsset[quote]; ok {
		quote = c
	}
	return base + "-" + quote
}

type subscribeMsg struct {
	Event        string   `json:"event"`
	Pair         []string `json:"pair"`
	Subscription struct {
		Name string `json:"name"`
	} `json:"subscription"`
}

type eventMsg struct {
	Event        string `json:"event"`
	Status       string `json:"status"`
	ErrorMessage string `json:"errorMessage"`
}

// Feed streams Kraken trades/ticker into the protocol.
type Feed struct {
	url      string
	symbols  []string // canonical "BASE-QUOTE"
	producer *venue.Producer
	tracer   *lineage.Tracer
	state    *venue.StateVar
	logger   *slog.Logger

	connMu sync.Mutex
	conn   *websocket.Conn

	idsMu sync.Mutex
	ids   map[string]identity.InstrumentId // canonical symbol -> id
}

// New creates a Kraken feed for the given canonical symbols. An empty
// url uses DefaultURL.
func New(url string, symbols []string, producer *venue.Producer, tracer *lineage.Tracer, logger *slog.Logger) *Feed {
	if url == "" {
		url = DefaultURL
	}
	logger = logger.With("adapter", identity.Venue_Kraken.String())
	return &Feed{
		url:      url,
		symbols:  symbols,
		producer: producer,
		tracer:   tracer,
		state:    venue.NewStateVar(logger),
		logger:   logger,
		ids:      make(map[string]identity.InstrumentId),
	}
}

// Venue returns Venue_Kraken.
func (f *Feed) Venue() identity.VenueId { return identity.Venue_Kraken }

// State returns the adapter's lifecycle state variable.
func (f *Feed) State() *venue.StateVar { return f.state }

// Run connects and maintains the feed until ctx is cancelled.
func (f *Feed) Run(ctx context.Context) error {
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

func (f *Feed) connectAndStream(ctx context.Context) error {
	f.state.Set(venue.StateConnecting)
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, f.url, nil)
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

	f.state.Set(venue.StateSubscribing)
	for _, name := range []string{"trade", "ticker"} {
		if err := f.subscribe(name); err != nil {
			return fmt.Errorf("subscribe %s: %w", name, err)
		}
	}

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

func (f *Feed) subscribe(name string) error {
	var sub subscribeMsg
	sub.Event = "subscribe"
	for _, s := range f.symbols {
		sub.Pair = append(sub.Pair, ToKrakenPair(s))
	}
	sub.Subscription.Name = name

	payload, err := segjson.Marshal(sub)
	if err != nil {
		return err
	}
	f.connMu.Lock()
	defer f.connMu.Unlock()
	if f.conn == nil {
		return fmt.Errorf("not connected")
	}
	f.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return f.conn.WriteMessage(websocket.TextMessage, payload)
}

func (f *Feed) dispatch(data []byte) {
	// Event messages are objects; data messages are arrays.
	if len(data) > 0 && data[0] == '{' {
		var evt eventMsg
		if err := segjson.Unmarshal(data, &evt); err != nil {
			f.logger.Debug("ignoring unparseable message", "error", err)
			return
		}
		switch evt.Event {
		case "subscriptionStatus":
			if evt.Status == "error" {
				f.logger.Warn("subscription rejected", "error", evt.ErrorMessage)
			} else {
				f.state.Set(venue.StateStreaming)
			}
		case "systemStatus", "heartbeat", "pong":
		default:
			f.logger.Debug("unknown event", "event", evt.Event)
		}
		return
	}

	var frame []segjson.RawMessage
	if err := segjson.Unmarshal(data, &frame); err != nil || len(frame) < 4 {
		f.logger.Debug("ignoring malformed data frame", "error", err)
		return
	}

	var channel, pair string
	if err := segjson.Unmarshal(frame[len(frame)-2], &channel); err != nil {
		return
	}
	if err := segjson.Unmarshal(frame[len(frame)-1], &pair); err != nil {
		return
	}

	switch {
	case channel == "trade":
		f.onTrades(frame[1], pair, data)
	case strings.HasPrefix(channel, "ticker"):
		f.onTicker(frame[1], pair)
	}
}

// onTrades handles one trade frame: an array of
// [price, volume, time, side, orderType, misc] rows.
func (f *Feed) onTrades(payload segjson.RawMessage, pair string, raw []byte) {
	var rows [][]segjson.RawMessage
	if err := segjson.Unmarshal(payload, &rows); err != nil {
		f.logger.Warn("bad trade payload", "pair", pair, "error", err)
		return
	}
	id := f.instrument(pair)

	for _, row := range rows {
		if len(row) < 4 {
			continue
		}
		var priceStr, volumeStr, timeStr, sideStr string
		if segjson.Unmarshal(row[0], &priceStr) != nil ||
			segjson.Unmarshal(row[1], &volumeStr) != nil ||
			segjson.Unmarshal(row[2], &timeStr) != nil ||
			segjson.Unmarshal(row[3], &sideStr) != nil {
			continue
		}

		price, err1 := venue.ParseFixed8(priceStr)
		volume, err2 := venue.ParseFixed8(volumeStr)
		if err1 != nil || err2 != nil {
			f.logger.Warn("bad trade fields", "pair", pair)
			continue
		}

		side := wire.Side_Sell
		if sideStr == "b" {
			side = wire.Side_Buy
		}

		trade := &wire.Trade{
			InstrumentId: id,
			Price:        price,
			Volume:       uint64(volume),
			Side:         side,
		}
		if err := venue.Emit(f.producer, trade); err != nil {
			f.logger.Warn("trade emit failed", "error", err)
			return
		}
	}

	if trace := f.tracer.Trace(raw, 0); trace != nil {
		if err := venue.Emit(f.producer, trace); err != nil {
			f.logger.Warn("trace emit failed", "error", err)
		}
	}
}

// onTicker handles a ticker frame: {"a":[price, wholeLot, lot], "b":[...]}.
func (f *Feed) onTicker(payload segjson.RawMessage, pair string) {
	var tick struct {
		Ask []segjson.RawMessage `json:"a"`
		Bid []segjson.RawMessage `json:"b"`
	}
	if err := segjson.Unmarshal(payload, &tick); err != nil || len(tick.Ask) < 3 || len(tick.Bid) < 3 {
		f.logger.Warn("bad ticker payload", "pair", pair, "error", err)
		return
	}

	var askPxStr, askSzStr, bidPxStr, bidSzStr string
	if segjson.Unmarshal(tick.Ask[0], &askPxStr) != nil ||
		segjson.Unmarshal(tick.Ask[2], &askSzStr) != nil ||
		segjson.Unmarshal(tick.Bid[0], &bidPxStr) != nil ||
		segjson.Unmarshal(tick.Bid[2], &bidSzStr) != nil {
		return
	}

	askPx, err1 := venue.ParseFixed8(askPxStr)
	askSz, err2 := venue.ParseFixed8(askSzStr)
	bidPx, err3 := venue.ParseFixed8(bidPxStr)
	bidSz, err4 := venue.ParseFixed8(bidSzStr)
	if err1 != nil || err2 != nil || err3 != nil || err4 != nil {
		f.logger.Warn("bad ticker fields", "pair", pair)
		return
	}

	quote := &wire.Quote{
		InstrumentId: f.instrument(pair),
		BidPrice:     bidPx,
		AskPrice:     askPx,
		BidSize:      uint64(bidSz),
		AskSize:      uint64(askSz),
	}
	if err := venue.Emit(f.producer, quote); err != nil {
		f.logger.Warn("quote emit failed", "error", err)
	}
}

func (f *Feed) instrument(pair string) identity.InstrumentId {
	symbol := FromKrakenPair(pair)

	f.idsMu.Lock()
	id, ok := f.ids[symbol]
	f.idsMu.Unlock()
	if ok {
		return id
	}

	id = identity.NewCexSpot(identity.Venue_Kraken, symbol)
	if err := f.producer.Discover(schema.CachedRecord{
		Id:       id,
		Symbol:   symbol,
		Decimals: 8,
	}); err != nil {
		f.logger.Warn("discovery rejected", "symbol", symbol, "error", err)
	}

	f.idsMu.Lock()
	f.ids[symbol] = id
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
	if err := f.producer.Invalidate(identity.Venue_Kraken, reason, ids); err != nil {
		f.logger.Warn("invalidation emit failed", "error", err)
	}
}
