package handler

import (
	"net/http"
	"strconv"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/xenking/catalog-service/internal/domain/category"
	"github.com/xenking/catalog-service/internal/domain/product"
)

const maxBodyBytes = 1 << 20

// errMalformedBody is returned for request bodies that are not a JSON object
// of the expected shape.
var errMalformedBody = errors.New("malformed request body")

// productBody is a decoded create or update request.
type productBody struct {
	Name        string
	Price       decimal.Decimal
	HasPrice    bool
	Description string
	Available   *bool
	CategoryID  string
}

func (h *Handler) decodeProduct(r *http.Request) (productBody, error) {
	var (
		b     productBody
		field string
	)
	d := jx.Decode(http.MaxBytesReader(nil, r.Body, maxBodyBytes), 512)

	err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "name":
			b.Name, err = optString(d)
		case "description":
			b.Description, err = optString(d)
		case h.baseField:
			b.Price, b.HasPrice, err = optDecimal(d)
		case "isAvailable":
			b.Available, err = optBool(d)
		case "categoryId":
			b.CategoryID, err = optScalar(d)
		default:
			err = d.Skip()
		}
		if err != nil {
			field = key
			return err
		}
		return nil
	})
	if err != nil {
		return productBody{}, malformed(r, field, err)
	}
	return b, nil
}

func decodeCategory(r *http.Request) (string, error) {
	var (
		name  string
		field string
	)
	d := jx.Decode(http.MaxBytesReader(nil, r.Body, maxBodyBytes), 256)

	err := d.Obj(func(d *jx.Decoder, key string) error {
		if key != "categoryName" {
			return d.Skip()
		}
		var err error
		if name, err = optString(d); err != nil {
			field = key
			return err
		}
		return nil
	})
	if err != nil {
		return "", malformed(r, field, err)
	}
	return name, nil
}

// malformed logs the decoder error and returns errMalformedBody, naming the
// offending field when it is known. Decoder text is never sent to clients.
func malformed(r *http.Request, field string, err error) error {
	zctx.From(r.Context()).Debug("Malformed request body",
		zap.String("field", field),
		zap.Error(err),
	)
	if field == "" {
		return errMalformedBody
	}
	return errors.Wrapf(errMalformedBody, "field %q", field)
}

func optString(d *jx.Decoder) (string, error) {
	if d.Next() == jx.Null {
		return "", d.Null()
	}
	return d.Str()
}

func optBool(d *jx.Decoder) (*bool, error) {
	if d.Next() == jx.Null {
		return nil, d.Null()
	}
	v, err := d.Bool()
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// optScalar accepts a string or a number and returns its text.
func optScalar(d *jx.Decoder) (string, error) {
	switch tt := d.Next(); tt {
	case jx.Null:
		return "", d.Null()
	case jx.String:
		return d.Str()
	case jx.Number:
		n, err := d.Num()
		if err != nil {
			return "", err
		}
		return n.String(), nil
	default:
		return "", errors.Errorf("unexpected %s", tt)
	}
}

func optDecimal(d *jx.Decoder) (decimal.Decimal, bool, error) {
	s, err := optScalar(d)
	if err != nil || s == "" {
		return decimal.Decimal{}, false, err
	}
	v, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, false, errors.Errorf("invalid number %q", s)
	}
	return v, true, nil
}

func (h *Handler) encodeView(e *jx.Encoder, v product.View) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("code", func(e *jx.Encoder) { e.Str(v.Code) })
		e.Field("name", func(e *jx.Encoder) { e.Str(v.Name) })
		e.Field(h.baseField, func(e *jx.Encoder) { e.RawStr(v.Price.String()) })
		e.Field(h.quoteField, func(e *jx.Encoder) { e.RawStr(v.QuotePrice.StringFixed(product.PriceScale)) })
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
}

// encodePage writes the paging envelope used by every list endpoint.
func (h *Handler) encodePage(e *jx.Encoder, p *product.Page[product.View]) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("items", func(e *jx.Encoder) {
			e.Arr(func(e *jx.Encoder) {
				for _, v := range p.Items {
					h.encodeView(e, v)
				}
			})
		})
		e.Field("page", func(e *jx.Encoder) { e.Int(p.Page) })
		e.Field("size", func(e *jx.Encoder) { e.Int(p.Size) })
		e.Field("totalItems", func(e *jx.Encoder) { e.Int64(p.Total) })
		e.Field("totalPages", func(e *jx.Encoder) { e.Int(p.TotalPages()) })
	})
}

func encodeCategory(e *jx.Encoder, c *category.Category) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("id", func(e *jx.Encoder) { e.Int64(c.ID) })
		e.Field("categoryName", func(e *jx.Encoder) { e.Str(c.Name) })
	})
}

func encodeMessage(msg string) func(*jx.Encoder) {
	return func(e *jx.Encoder) {
		e.Obj(func(e *jx.Encoder) {
			e.Field("message", func(e *jx.Encoder) { e.Str(msg) })
		})
	}
}

func writeJSON(w http.ResponseWriter, status int, encode func(*jx.Encoder)) {
	e := jx.GetEncoder()
	defer jx.PutEncoder(e)
	encode(e)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(e.Bytes())
}

// pageRequest reads ?page= and ?size=. Missing values take the defaults and
// out-of-range values are clamped by the service.
func pageRequest(r *http.Request) (product.PageRequest, error) {
	var (
		req product.PageRequest
		ve  ValidationError
	)
	q := r.URL.Query()
	if s := q.Get("page"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			ve.Add("page", "Page must be a number")
		}
		req.Page = n
	}
	if s := q.Get("size"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			ve.Add("size", "Size must be a number")
		}
		req.Size = n
	}
	return req, ve.Err()
}
