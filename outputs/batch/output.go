package batch

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/btree"
	"github.com/gosuri/uilive"
	"github.com/pkg/errors"
	"golang.org/x/time/rate"

	"github.com/cube2222/remotescan/execution"
	"github.com/cube2222/remotescan/octosql"
	"github.com/cube2222/remotescan/outputs/formats"
	"github.com/cube2222/remotescan/physical"
)

const btreeDefaultDegree = 12

// Source is the part of a page source the printer drives.
type Source interface {
	NextBatch() (*execution.Batch, error)
	IsFinished() bool
	CompletedBytes() int64
}

type OutputPrinter struct {
	source               Source
	schema               physical.Schema
	keyIndices           []int
	directionMultipliers []int
	limit                int

	format       func(io.Writer) formats.Format
	live         bool
	pollInterval time.Duration
}

type PrinterOption func(*OutputPrinter)

// WithOrderBy sorts the output by the given columns, descending where the multiplier is -1.
func WithOrderBy(keyIndices []int, directionMultipliers []int) PrinterOption {
	return func(o *OutputPrinter) {
		o.keyIndices = keyIndices
		o.directionMultipliers = directionMultipliers
	}
}

func WithLimit(limit int) PrinterOption {
	return func(o *OutputPrinter) {
		o.limit = limit
	}
}

func WithLive(live bool) PrinterOption {
	return func(o *OutputPrinter) {
		o.live = live
	}
}

func WithPollInterval(interval time.Duration) PrinterOption {
	return func(o *OutputPrinter) {
		o.pollInterval = interval
	}
}

func NewOutputPrinter(source Source, schema physical.Schema, format func(io.Writer) formats.Format, opts ...PrinterOption) *OutputPrinter {
	o := &OutputPrinter{
		source:       source,
		schema:       schema,
		format:       format,
		pollInterval: 10 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

type outputItem struct {
	Key                  []octosql.Value
	Values               []octosql.Value
	Seq                  int
	DirectionMultipliers []int
}

func (item *outputItem) Less(than btree.Item) bool {
	thanTyped, ok := than.(*outputItem)
	if !ok {
		panic(fmt.Sprintf("invalid order by key comparison: %T", than))
	}

	for i := 0; i < len(item.Key); i++ {
		if comp := item.Key[i].Compare(thanTyped.Key[i]); comp != 0 {
			return comp*item.DirectionMultipliers[i] == -1
		}
	}

	// Equal keys keep arrival order.
	return item.Seq < thanTyped.Seq
}

// Run drains the source and writes the formatted result to w.
func (o *OutputPrinter) Run(ctx context.Context, w io.Writer) error {
	rows := btree.New(btreeDefaultDegree)
	countOnlyRows := 0
	seq := 0
	limiter := rate.NewLimiter(rate.Every(o.pollInterval), 1)
	liveWriter := uilive.New()
	liveWriter.Out = w
	start := time.Now()
	lastUpdate := start

	for !o.source.IsFinished() {
		if o.limit > 0 && len(o.keyIndices) == 0 && seq+countOnlyRows >= o.limit {
			break
		}

		batch, err := o.source.NextBatch()
		if err != nil {
			return errors.Wrap(err, "couldn't get next batch")
		}
		if batch == nil {
			if err := limiter.Wait(ctx); err != nil {
				return err
			}
		} else if len(batch.Columns) == 0 {
			countOnlyRows += batch.RowCount
		} else {
			for i := 0; i < batch.RowCount; i++ {
				values := batch.Row(i)
				key := make([]octosql.Value, len(o.keyIndices))
				for j, index := range o.keyIndices {
					key[j] = values[index]
				}
				rows.ReplaceOrInsert(&outputItem{
					Key:                  key,
					Values:               values,
					Seq:                  seq,
					DirectionMultipliers: o.directionMultipliers,
				})
				seq++
			}
		}

		if o.live && time.Since(lastUpdate) > time.Second/4 {
			lastUpdate = time.Now()
			fmt.Fprintf(liveWriter, "rows: %d, bytes: %d, elapsed: %s\n", seq+countOnlyRows, o.source.CompletedBytes(), time.Since(start).Round(time.Millisecond))
			liveWriter.Flush()
		}
	}

	var buf bytes.Buffer
	if len(o.schema.Fields) == 0 {
		total := countOnlyRows
		if o.limit > 0 && total > o.limit {
			total = o.limit
		}
		fmt.Fprintf(&buf, "count: %d\n", total)
	} else {
		format := o.format(&buf)
		format.SetSchema(o.schema)
		i := 0
		var writeErr error
		rows.Ascend(func(item btree.Item) bool {
			if o.limit > 0 && i == o.limit {
				return false
			}
			i++
			if err := format.Write(item.(*outputItem).Values); err != nil {
				writeErr = err
				return false
			}
			return true
		})
		if writeErr != nil {
			return errors.Wrap(writeErr, "couldn't write row")
		}
		if err := format.Close(); err != nil {
			return errors.Wrap(err, "couldn't close output format")
		}
	}

	if o.live {
		buf.WriteTo(liveWriter)
		liveWriter.Flush()
		return nil
	}
	_, err := buf.WriteTo(w)
	return err
}
