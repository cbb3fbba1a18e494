package alerts

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/JoethonDev/stockwatcher/internal/models"
)

// maxTargetPrice guards against nonsense input; no listed stock trades
// anywhere near this.
var maxTargetPrice = decimal.NewFromInt(10_000_000)

// alertFromRequest validates a create request and builds the alert.
// UserID, CompanyID, and Symbol are filled in by the handler after the
// symbol lookup.
func alertFromRequest(req *CreateRequest) (*models.Alert, error) {
	if strings.TrimSpace(req.Symbol) == "" {
		return nil, errors.New("symbol is required")
	}

	kind, ok := models.ParseAlertKind(req.Kind)
	if !ok {
		return nil, errors.New("kind must be threshold or duration")
	}

	direction, ok := models.ParseDirection(req.Direction)
	if !ok {
		return nil, errors.New("direction must be above or below")
	}

	if req.TargetPrice == "" {
		return nil, errors.New("target_price is required")
	}
	target, err := decimal.NewFromString(req.TargetPrice.String())
	if err != nil {
		return nil, errors.New("target_price must be a decimal number")
	}
	if !target.IsPositive() {
		return nil, errors.New("target_price must be positive")
	}
	if target.GreaterThan(maxTargetPrice) {
		return nil, errors.New("target_price is out of range")
	}

	alert := models.NewAlert("", "", kind, direction, target)
	alert.DurationSeconds = req.DurationSeconds

	if err := alert.Validate(); err != nil {
		return nil, err
	}

	return alert, nil
}
