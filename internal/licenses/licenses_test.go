package licenses

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rcallahan/dispatch-relay-service/internal/models"
)

// recordingNotifier collects delivered reminders.
type recordingNotifier struct {
	delivered []models.License
}

func (n *recordingNotifier) Notify(ctx context.Context, lic models.License, expiry time.Time) error {
	n.delivered = append(n.delivered, lic)
	return nil
}

func writeLicenses(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "licenses.json")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

// TestExpiringOn verifies exact-date matching and skipping of bad dates.
func TestExpiringOn(t *testing.T) {
	list := []models.License{
		{Name: "a", ExpiryDate: "2026-10-01"},
		{Name: "b", ExpiryDate: "2026-10-02"},
		{Name: "c", ExpiryDate: "2026-10-01"},
		{Name: "bad", ExpiryDate: "October 1st"},
	}

	target := time.Date(2026, 10, 1, 15, 30, 0, 0, time.UTC)
	got := ExpiringOn(list, target)
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if got[0].Name != "a" || got[1].Name != "c" {
		t.Errorf("matched = %q, %q, want a, c", got[0].Name, got[1].Name)
	}
}

// TestSweep_DeliversMatching verifies that the sweep notifies exactly the
// licenses expiring on the target date.
func TestSweep_DeliversMatching(t *testing.T) {
	path := writeLicenses(t, `[
		{"name": "EMS License", "email": "ops@example.com", "expiry_date": "2026-10-01"},
		{"name": "Other License", "email": "ops@example.com", "expiry_date": "2027-01-01"}
	]`)

	n := &recordingNotifier{}
	target := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)
	sent, err := Sweep(context.Background(), path, target, n)
	if err != nil {
		t.Fatalf("Sweep() error = %v", err)
	}
	if sent != 1 {
		t.Errorf("sent = %d, want 1", sent)
	}
	if len(n.delivered) != 1 || n.delivered[0].Name != "EMS License" {
		t.Errorf("delivered = %v, want EMS License only", n.delivered)
	}
}

// TestSweep_MissingFile verifies the sweep errors on an absent licenses file.
func TestSweep_MissingFile(t *testing.T) {
	_, err := Sweep(context.Background(), filepath.Join(t.TempDir(), "none.json"),
		time.Now(), &recordingNotifier{})
	if err == nil {
		t.Fatal("Sweep() error = nil, want read error")
	}
}

// TestSMTPNotifier_SkipsWithoutEmail verifies that entries without a
// recipient are skipped silently rather than attempted.
func TestSMTPNotifier_SkipsWithoutEmail(t *testing.T) {
	// Port 1 is never a listening SMTP server; a send attempt would error.
	n := &SMTPNotifier{Host: "127.0.0.1", Port: 1, Sender: "noreply@example.com"}
	err := n.Notify(context.Background(),
		models.License{Name: "No Contact Permit"}, time.Now())
	if err != nil {
		t.Errorf("Notify() error = %v, want nil skip", err)
	}
}

// TestBuildMessage verifies the reminder message headers and body.
func TestBuildMessage(t *testing.T) {
	msg := string(buildMessage("noreply@example.com", "ops@example.com",
		"License Expiration Notice: EMS License", `Reminder: "EMS License" expires on 2026-10-01.`))

	for _, want := range []string{
		"From: noreply@example.com\r\n",
		"To: ops@example.com\r\n",
		"Subject: License Expiration Notice: EMS License\r\n",
		"Content-Type: text/plain",
		"expires on 2026-10-01",
	} {
		if !strings.Contains(msg, want) {
			t.Errorf("message missing %q", want)
		}
	}
}
