package handlers

import (
	"food-order-tracker/models"
	"food-order-tracker/statemachine"

	"github.com/gin-contrib/sse"
	"github.com/gin-gonic/gin"
)

// StreamOrder pushes the order as Server-Sent Events: the current record
// first, then one event per status change. The stream ends after Delivered,
// when the client goes away, or when another stream takes over the order.
func (h *Handler) StreamOrder(c *gin.Context) {
	order, sub, err := h.orders.Watch(c.Param("id"))
	if err != nil {
		h.writeStoreError(c, err)
		return
	}
	defer sub.Close()

	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	h.writeEvent(c, order)
	if statemachine.IsTerminal(order.Status) {
		return
	}

	ctx := c.Request.Context()
	for {
		select {
		case <-ctx.Done():
			h.logger.Debug("stream client disconnected", "order_id", order.ID)
			return
		case updated, ok := <-sub.Updates():
			if !ok {
				return
			}
			h.writeEvent(c, updated)
			if statemachine.IsTerminal(updated.Status) {
				return
			}
		}
	}
}

func (h *Handler) writeEvent(c *gin.Context, order models.Order) {
	c.Render(-1, sse.Event{Data: order})
	c.Writer.Flush()
}
