package webhook

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/andrey-berenda/mpgs-checkout/internal/pkg/models"
)

var ErrInvalidPayload = errors.New("invalid payload")

// flexibleID accepts both JSON strings and numbers; the processor echoes the
// order id back in whatever form it was sent.
type flexibleID string

func (f *flexibleID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexibleID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = flexibleID(n.String())
	return nil
}

type payload struct {
	Result string `json:"result"`
	Order  *struct {
		ID flexibleID `json:"id"`
	} `json:"order"`
	Transaction *struct {
		ID flexibleID `json:"id"`
	} `json:"transaction"`
	Error *struct {
		Explanation string `json:"explanation"`
	} `json:"error"`
}

// ParseNotification decodes a webhook body. The order id is required and
// must be a positive integer.
func ParseNotification(body []byte) (models.Notification, error) {
	p := payload{}
	if err := json.Unmarshal(body, &p); err != nil {
		return models.Notification{}, fmt.Errorf("%w: json.Unmarshal: %v", ErrInvalidPayload, err)
	}
	if p.Order == nil || strings.TrimSpace(string(p.Order.ID)) == "" {
		return models.Notification{}, fmt.Errorf("%w: missing order.id", ErrInvalidPayload)
	}
	orderID, err := strconv.ParseInt(strings.TrimSpace(string(p.Order.ID)), 10, 64)
	if err != nil || orderID <= 0 {
		return models.Notification{}, fmt.Errorf("%w: order.id %q is not a valid order identifier", ErrInvalidPayload, p.Order.ID)
	}

	n := models.Notification{
		Result:  models.NotificationResult(p.Result),
		OrderID: orderID,
	}
	if p.Transaction != nil {
		n.TransactionID = string(p.Transaction.ID)
	}
	if p.Error != nil {
		n.ErrorExplanation = p.Error.Explanation
	}
	return n, nil
}
