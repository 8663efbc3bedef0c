package main

import (
	"bufio"
	"io"
	"os"
	"strings"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	pgzip "github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"
)

type seedProduct struct {
	Name        string
	Description string
	Price       decimal.Decimal
	Available   *bool
}

type seedCategory struct {
	Name     string
	Products []seedProduct
}

// openSeed opens path, transparently decompressing files ending in .gz.
func openSeed(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open seed file")
	}
	if !strings.HasSuffix(path, ".gz") {
		return f, nil
	}
	gz, err := pgzip.NewReader(bufio.NewReaderSize(f, 1<<20))
	if err != nil {
		_ = f.Close()
		return nil, errors.Wrap(err, "create gzip reader")
	}
	return readCloser{Reader: gz, close: func() error {
		gzErr := gz.Close()
		if err := f.Close(); err != nil {
			return err
		}
		return gzErr
	}}, nil
}

type readCloser struct {
	io.Reader
	close func() error
}

func (r readCloser) Close() error { return r.close() }

// decodeSeed reads {"categories":[{"categoryName":...,"products":[...]}]}.
func decodeSeed(r io.Reader) ([]seedCategory, error) {
	var out []seedCategory
	d := jx.Decode(r, 4096)
	err := d.Obj(func(d *jx.Decoder, key string) error {
		if key != "categories" {
			return d.Skip()
		}
		return d.Arr(func(d *jx.Decoder) error {
			c, err := decodeCategory(d)
			if err != nil {
				return errors.Wrapf(err, "category %d", len(out))
			}
			out = append(out, c)
			return nil
		})
	})
	if err != nil {
		return nil, errors.Wrap(err, "decode seed")
	}
	return out, nil
}

func decodeCategory(d *jx.Decoder) (seedCategory, error) {
	var c seedCategory
	err := d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "categoryName":
			v, err := d.Str()
			c.Name = v
			return err
		case "products":
			return d.Arr(func(d *jx.Decoder) error {
				p, err := decodeProduct(d)
				if err != nil {
					return errors.Wrapf(err, "product %d", len(c.Products))
				}
				c.Products = append(c.Products, p)
				return nil
			})
		default:
			return d.Skip()
		}
	})
	return c, err
}

func decodeProduct(d *jx.Decoder) (seedProduct, error) {
	var p seedProduct
	err := d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "name":
			v, err := d.Str()
			p.Name = v
			return err
		case "description":
			v, err := d.Str()
			p.Description = v
			return err
		case "price":
			var raw string
			switch d.Next() {
			case jx.String:
				v, err := d.Str()
				if err != nil {
					return err
				}
				raw = v
			default:
				n, err := d.Num()
				if err != nil {
					return err
				}
				raw = n.String()
			}
			v, err := decimal.NewFromString(raw)
			if err != nil {
				return errors.Wrapf(err, "price %q", raw)
			}
			p.Price = v
			return nil
		case "isAvailable":
			if d.Next() == jx.Null {
				return d.Null()
			}
			v, err := d.Bool()
			if err != nil {
				return err
			}
			p.Available = &v
			return nil
		default:
			return d.Skip()
		}
	})
	return p, err
}
