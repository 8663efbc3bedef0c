package main

import (
	"bufio"
	"context"
	"io"
	"strings"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	pgzip "github.com/klauspost/pgzip"

	"github.com/xenking/catalog-service/internal/domain/product"
)

// exporter is the part of the product service the export needs.
type exporter interface {
	Export(ctx context.Context, fn func(product.View) error) error
}

// lineWriter writes one JSON object per product and line.
type lineWriter struct {
	w          *bufio.Writer
	e          *jx.Encoder
	baseField  string
	quoteField string
	count      int
}

func newLineWriter(w io.Writer, base, quote string) *lineWriter {
	return &lineWriter{
		w:          bufio.NewWriterSize(w, 64<<10),
		e:          jx.GetEncoder(),
		baseField:  "price" + titleCase(base),
		quoteField: "price" + titleCase(quote),
	}
}

func (l *lineWriter) write(v product.View) error {
	l.e.Reset()
	l.e.Obj(func(e *jx.Encoder) {
		e.Field("code", func(e *jx.Encoder) { e.Str(v.Code) })
		e.Field("name", func(e *jx.Encoder) { e.Str(v.Name) })
		e.Field(l.baseField, func(e *jx.Encoder) { e.RawStr(v.Price.String()) })
		e.Field(l.quoteField, func(e *jx.Encoder) { e.RawStr(v.QuotePrice.StringFixed(product.PriceScale)) })
		e.Field("description", func(e *jx.Encoder) { e.Str(v.Description) })
		e.Field("isAvailable", func(e *jx.Encoder) {
			if v.Available == nil {
				e.Null()
				return
			}
			e.Bool(*v.Available)
		})
		e.Field("categoryId", func(e *jx.Encoder) { e.Str(v.CategoryID) })
	})
	if _, err := l.w.Write(l.e.Bytes()); err != nil {
		return err
	}
	l.count++
	return l.w.WriteByte('\n')
}

func (l *lineWriter) flush() error {
	jx.PutEncoder(l.e)
	return l.w.Flush()
}

// export streams every product from src to w as JSON lines, gzipped with
// parallel compression when compress is set. It returns the number of
// products written.
func export(ctx context.Context, src exporter, w io.Writer, compress bool, base, quote string) (int, error) {
	var gz *pgzip.Writer
	if compress {
		gz = pgzip.NewWriter(w)
		w = gz
	}

	lw := newLineWriter(w, base, quote)
	if err := src.Export(ctx, lw.write); err != nil {
		return lw.count, errors.Wrap(err, "export products")
	}
	if err := lw.flush(); err != nil {
		return lw.count, errors.Wrap(err, "flush")
	}
	if gz != nil {
		if err := gz.Close(); err != nil {
			return lw.count, errors.Wrap(err, "close gzip")
		}
	}
	return lw.count, nil
}

func titleCase(currency string) string {
	c := strings.ToLower(strings.TrimSpace(currency))
	if c == "" {
		return ""
	}
	return strings.ToUpper(c[:1]) + c[1:]
}
