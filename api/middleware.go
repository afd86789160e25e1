package api

import (
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zlib"
	"github.com/labstack/echo/v4"
)

// DecompressRequest inflates request bodies sent with Content-Encoding gzip
// or deflate (zlib). identity is passed through. Any other encoding is
// answered with 415, a body that does not match its encoding with 400.
func DecompressRequest() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			encoding := strings.ToLower(strings.TrimSpace(req.Header.Get(echo.HeaderContentEncoding)))
			if encoding == "" || encoding == "identity" || req.Body == nil || req.Body == http.NoBody {
				return next(c)
			}

			raw := req.Body
			var inflated io.ReadCloser
			var err error
			switch encoding {
			case "gzip", "x-gzip":
				inflated, err = gzip.NewReader(raw)
			case "deflate":
				inflated, err = zlib.NewReader(raw)
			default:
				_ = raw.Close()
				return c.JSON(http.StatusUnsupportedMediaType, errorResponse{Error: fmt.Sprintf("Unsupported content encoding %q", encoding)})
			}
			if err != nil {
				_ = raw.Close()
				return c.JSON(http.StatusBadRequest, errorResponse{Error: "Invalid " + encoding + " body"})
			}

			req.Body = &inflatedBody{ReadCloser: inflated, raw: raw}
			req.ContentLength = -1
			req.Header.Del(echo.HeaderContentEncoding)
			req.Header.Del(echo.HeaderContentLength)
			return next(c)
		}
	}
}

// inflatedBody closes the decompressor and the underlying request body.
type inflatedBody struct {
	io.ReadCloser
	raw io.Closer
}

func (b *inflatedBody) Close() error {
	err := b.ReadCloser.Close()
	if cerr := b.raw.Close(); err == nil {
		err = cerr
	}
	return err
}

// sonicSerializer replaces echo's encoding/json based serializer.
type sonicSerializer struct{}

func (sonicSerializer) Serialize(c echo.Context, i interface{}, indent string) error {
	enc := sonic.ConfigStd.NewEncoder(c.Response())
	if indent != "" {
		enc.SetIndent("", indent)
	}
	return enc.Encode(i)
}

func (sonicSerializer) Deserialize(c echo.Context, i interface{}) error {
	if err := sonic.ConfigStd.NewDecoder(c.Request().Body).Decode(i); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body").SetInternal(err)
	}
	return nil
}
