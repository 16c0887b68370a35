// Package licenses scans tracked licenses and sends expiration reminders.
package licenses

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/rcallahan/dispatch-relay-service/internal/models"
)

// dateLayout is the expiry date format in the licenses file.
const dateLayout = "2006-01-02"

// ReminderLeadDays is how far ahead of expiration the sweep reminds.
const ReminderLeadDays = 30

// Load reads the licenses file, a JSON array of license entries.
func Load(path string) ([]models.License, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read licenses file: %w", err)
	}
	var out []models.License
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("parse licenses file %s: %w", path, err)
	}
	return out, nil
}

// ExpiringOn returns licenses whose expiry date falls exactly on target's
// calendar date. Entries with unparseable dates are skipped.
func ExpiringOn(list []models.License, target time.Time) []models.License {
	targetDate := target.Format(dateLayout)
	var out []models.License
	for _, lic := range list {
		expiry, err := time.Parse(dateLayout, lic.ExpiryDate)
		if err != nil {
			continue
		}
		if expiry.Format(dateLayout) == targetDate {
			out = append(out, lic)
		}
	}
	return out
}

// Notifier delivers one reminder for a license.
type Notifier interface {
	Notify(ctx context.Context, lic models.License, expiry time.Time) error
}

// Sweep loads the licenses file, finds entries expiring on the target date
// and delivers a reminder for each. Returns the number of reminders sent;
// delivery errors stop the sweep so operators notice a broken channel.
func Sweep(ctx context.Context, path string, target time.Time, notifier Notifier) (int, error) {
	list, err := Load(path)
	if err != nil {
		return 0, err
	}

	sent := 0
	for _, lic := range ExpiringOn(list, target) {
		expiry, err := time.Parse(dateLayout, lic.ExpiryDate)
		if err != nil {
			continue
		}
		if err := notifier.Notify(ctx, lic, expiry); err != nil {
			return sent, fmt.Errorf("notify %q: %w", lic.Name, err)
		}
		sent++
	}
	return sent, nil
}
