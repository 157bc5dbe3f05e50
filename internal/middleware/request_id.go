package middleware

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// HeaderRequestID is the header carrying the request correlation id.
const HeaderRequestID = "X-Request-ID"

// RequestID is a Fiber middleware that assigns a correlation id to every
// request. An id supplied by the caller is kept, otherwise a new one is
// generated. The id is echoed in the response header and stored in the
// request context for handlers to log.
func RequestID() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Get(HeaderRequestID)
		if id == "" {
			id = uuid.New().String()
		}

		c.Locals("request_id", id)
		c.Set(HeaderRequestID, id)

		return c.Next()
	}
}
