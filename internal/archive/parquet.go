// Copyright (c) 2024 Neomantra Corp
//
// Parquet persistence for the consumer-side archiver: Trade frames become
// rows with symbols resolved through the schema cache, so the archive is
// queryable without replaying discovery. Prices land as float64 columns;
// the archive is for analysis, the wire stays fixed-point.

package archive

import (
	"io"

	"github.com/apache/arrow-go/v18/parquet"
	"github.com/apache/arrow-go/v18/parquet/compress"
	pqfile "github.com/apache/arrow-go/v18/parquet/file"
	pqschema "github.com/apache/arrow-go/v18/parquet/schema"

	"github.com/dawsh2/alphapulse/internal/schema"
	"github.com/dawsh2/alphapulse/pkg/wire"
)

// Fixed8ToFloat64 converts a 10^8 fixed-point value to float64.
func Fixed8ToFloat64(v int64) float64 {
	return float64(v) / float64(wire.FixedPointScale)
}

// ParquetGroupNode_Trade returns the Parquet schema for archived trades.
//
// optional binary field_id=-1 venue (String);
// optional binary field_id=-1 asset_type (String);
// optional int64 field_id=-1 asset_id (Int(bitWidth=64, isSigned=false));
// optional binary field_id=-1 symbol (String);
// optional double field_id=-1 price;
// optional double field_id=-1 volume;
// optional binary field_id=-1 side (String);
// optional int64 field_id=-1 sequence (Int(bitWidth=64, isSigned=false));
// optional int64 field_id=-1 ts_event (Timestamp(isAdjustedToUTC=true, timeUnit=nanoseconds));
func ParquetGroupNode_Trade() *pqschema.GroupNode {
	return pqschema.MustGroup(pqschema.NewGroupNode("schema", parquet.Repetitions.Required, pqschema.FieldList{
		pqschema.MustPrimitive(pqschema.NewPrimitiveNodeConverted("venue", parquet.Repetitions.Optional, parquet.Types.ByteArray, pqschema.ConvertedTypes.UTF8, 0, 0, 0, -1)),
		pqschema.MustPrimitive(pqschema.NewPrimitiveNodeConverted("asset_type", parquet.Repetitions.Optional, parquet.Types.ByteArray, pqschema.ConvertedTypes.UTF8, 0, 0, 0, -1)),
		pqschema.MustPrimitive(pqschema.NewPrimitiveNodeLogical("asset_id", parquet.Repetitions.Optional, pqschema.NewIntLogicalType(64, false), parquet.Types.Int64, 0, -1)),
		pqschema.MustPrimitive(pqschema.NewPrimitiveNodeConverted("symbol", parquet.Repetitions.Optional, parquet.Types.ByteArray, pqschema.ConvertedTypes.UTF8, 0, 0, 0, -1)),
		pqschema.NewFloat64Node("price", parquet.Repetitions.Optional, -1),
		pqschema.NewFloat64Node("volume", parquet.Repetitions.Optional, -1),
		pqschema.MustPrimitive(pqschema.NewPrimitiveNodeConverted("side", parquet.Repetitions.Optional, parquet.Types.ByteArray, pqschema.ConvertedTypes.UTF8, 0, 0, 0, -1)),
		pqschema.MustPrimitive(pqschema.NewPrimitiveNodeLogical("sequence", parquet.Repetitions.Optional, pqschema.NewIntLogicalType(64, false), parquet.Types.Int64, 0, -1)),
		pqschema.MustPrimitive(pqschema.NewPrimitiveNodeLogical("ts_event", parquet.Repetitions.Optional, pqschema.NewTimestampLogicalType(true, pqschema.TimeUnitNanos), parquet.Types.Int64, 0, -1)),
	}, -1))
}

// ParquetTradeWriter streams Trade rows into one Parquet file.
type ParquetTradeWriter struct {
	pw    *pqfile.Writer
	rgw   pqfile.BufferedRowGroupWriter
	cache *schema.Cache
}

// NewParquetTradeWriter wraps w. The cache resolves symbols; unknown
// instruments archive with an empty symbol rather than being dropped.
func NewParquetTradeWriter(w io.Writer, cache *schema.Cache) *ParquetTradeWriter {
	props := parquet.NewWriterProperties(
		parquet.WithVersion(parquet.V2_LATEST),
		parquet.WithCompression(compress.Codecs.Snappy))
	pw := pqfile.NewParquetWriter(w, ParquetGroupNode_Trade(), pqfile.WithWriterProps(props))
	return &ParquetTradeWriter{
		pw:    pw,
		rgw:   pw.AppendBufferedRowGroup(),
		cache: cache,
	}
}

// WriteTrade appends one row.
func (p *ParquetTradeWriter) WriteTrade(h wire.Header, record *wire.Trade) error {
	symbol := ""
	if rec, ok := p.cache.Get(record.InstrumentId); ok {
		symbol = rec.Symbol
	}
	side := "none"
	switch record.Side {
	case wire.Side_Buy:
		side = "buy"
	case wire.Side_Sell:
		side = "sell"
	}

	cw, _ := p.rgw.Column(0)
	cw.(*pqfile.ByteArrayColumnChunkWriter).WriteBatch([]parquet.ByteArray{parquet.ByteArray(record.InstrumentId.Venue.String())}, []int16{1}, nil)
	cw, _ = p.rgw.Column(1)
	cw.(*pqfile.ByteArrayColumnChunkWriter).WriteBatch([]parquet.ByteArray{parquet.ByteArray(record.InstrumentId.AssetType.String())}, []int16{1}, nil)
	cw, _ = p.rgw.Column(2)
	cw.(*pqfile.Int64ColumnChunkWriter).WriteBatch([]int64{int64(record.InstrumentId.AssetId)}, []int16{1}, nil)
	cw, _ = p.rgw.Column(3)
	cw.(*pqfile.ByteArrayColumnChunkWriter).WriteBatch([]parquet.ByteArray{parquet.ByteArray(symbol)}, []int16{1}, nil)
	cw, _ = p.rgw.Column(4)
	cw.(*pqfile.Float64ColumnChunkWriter).WriteBatch([]float64{Fixed8ToFloat64(record.Price)}, []int16{1}, nil)
	cw, _ = p.rgw.Column(5)
	cw.(*pqfile.Float64ColumnChunkWriter).WriteBatch([]float64{Fixed8ToFloat64(int64(record.Volume))}, []int16{1}, nil)
	cw, _ = p.rgw.Column(6)
	cw.(*pqfile.ByteArrayColumnChunkWriter).WriteBatch([]parquet.ByteArray{parquet.ByteArray(side)}, []int16{1}, nil)
	cw, _ = p.rgw.Column(7)
	cw.(*pqfile.Int64ColumnChunkWriter).WriteBatch([]int64{int64(h.Sequence)}, []int16{1}, nil)
	cw, _ = p.rgw.Column(8)
	cw.(*pqfile.Int64ColumnChunkWriter).WriteBatch([]int64{int64(h.TimestampNs)}, []int16{1}, nil)
	return nil
}

// Close flushes the row group and footer.
func (p *ParquetTradeWriter) Close() error {
	p.rgw.Close()
	if err := p.pw.FlushWithFooter(); err != nil {
		return err
	}
	return p.pw.Close()
}
