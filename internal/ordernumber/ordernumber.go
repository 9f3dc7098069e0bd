// Package ordernumber issues human-readable order numbers.
package ordernumber

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"time"

	"gorm.io/gorm"

	"github.com/mealroute/lunchbox-backend/pkg/db/models"
	pkgerrors "github.com/mealroute/lunchbox-backend/pkg/errors"
)

// Prefix opens every order number.
const Prefix = "LUNCH"

var numberRe = regexp.MustCompile(`^LUNCH(\d{4})(\d{2})(\d{2})(\d{4})$`)

// Format renders an order number: LUNCH<YYYY><MM><DD><SEQ>, with the daily
// sequence zero-padded to four digits.
func Format(date time.Time, seq int) string {
	return fmt.Sprintf("%s%s%04d", Prefix, date.Format("20060102"), seq)
}

// Parse splits an order number into its date and daily sequence.
func Parse(number string) (time.Time, int, error) {
	m := numberRe.FindStringSubmatch(number)
	if m == nil {
		return time.Time{}, 0, pkgerrors.New(pkgerrors.CodeValidation, "malformed order number")
	}
	date, err := time.Parse("20060102", m[1]+m[2]+m[3])
	if err != nil {
		return time.Time{}, 0, pkgerrors.New(pkgerrors.CodeValidation, "malformed order number date")
	}
	seq, err := strconv.Atoi(m[4])
	if err != nil {
		return time.Time{}, 0, pkgerrors.New(pkgerrors.CodeValidation, "malformed order number sequence")
	}
	return date, seq, nil
}

// Next derives the next number for the day by counting orders created today
// inside the caller's transaction. Uniqueness is ultimately enforced by the
// unique constraint on orders.order_number; callers retry on conflict.
func Next(ctx context.Context, tx *gorm.DB, now time.Time) (string, error) {
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	dayEnd := dayStart.AddDate(0, 0, 1)

	var count int64
	err := tx.WithContext(ctx).
		Model(&models.Order{}).
		Where("created_at >= ? AND created_at < ?", dayStart, dayEnd).
		Count(&count).Error
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count today's orders")
	}

	return Format(now, int(count)+1), nil
}
