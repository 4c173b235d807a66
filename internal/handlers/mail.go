package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/taskflowhq/taskflow-api/internal/apperrors"
	"github.com/taskflowhq/taskflow-api/internal/mailer"
)

// MailHandler exposes a synchronous send endpoint for the frontend's own
// notification emails. Unlike server-side notifications it bypasses the
// outbound queue: the caller wants to know whether delivery worked.
type MailHandler struct {
	sender mailer.Sender
}

func NewMailHandler(sender mailer.Sender) *MailHandler {
	return &MailHandler{
		sender: sender,
	}
}

// SendEmail relays a single email through the configured SMTP transport
func (h *MailHandler) SendEmail(c *gin.Context) {
	if h.sender == nil {
		apperrors.ServiceUnavailable(c, "Email is not configured")
		return
	}

	var msg mailer.Message
	if err := c.ShouldBindJSON(&msg); err != nil {
		apperrors.BadRequest(c, "Invalid request body")
		return
	}

	if err := h.sender.Send(msg); err != nil {
		apperrors.InternalError(c, "Failed to send email")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Email sent successfully"})
}
