package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/contentsafety/internal/domain/safety"
	"github.com/yungbote/contentsafety/internal/platform/apierr"
)

func decodeJSON(c *gin.Context, maxBytes int64, dst any) error {
	if maxBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
	}
	dec := json.NewDecoder(c.Request.Body)
	if err := dec.Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			return apierr.New(http.StatusRequestEntityTooLarge, "request_too_large", fmt.Errorf("request body exceeds %d bytes", tooLarge.Limit))
		case errors.Is(err, io.EOF):
			return apierr.BadRequest("invalid_json", errors.New("request body is empty"))
		default:
			return apierr.BadRequest("invalid_json", fmt.Errorf("invalid request body: %w", err))
		}
	}
	return nil
}

type checkRequest struct {
	Product     *safety.Product `json:"product"`
	PersonaTags []string        `json:"persona_tags"`
}

func (r checkRequest) tags() safety.TagSet {
	tags := make([]safety.PersonaTag, 0, len(r.PersonaTags))
	for _, t := range r.PersonaTags {
		tags = append(tags, safety.PersonaTag(t))
	}
	return safety.NewTagSet(tags...)
}
