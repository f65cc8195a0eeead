package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/Quickbid0/quick-bid-jan-6-sub008/trust/countstore"
	"github.com/Quickbid0/quick-bid-jan-6-sub008/trust/models"
)

// WebhookNotifier posts automatic-restriction alerts to a chat channel via
// "incoming webhook". Delivery is fire-and-forget; the engine never waits on
// it before returning success to the triggering request.
type WebhookNotifier struct {
	WebhookURL string
}

type webhookBody struct {
	Text string `json:"text"`
}

func (n *WebhookNotifier) SendRestrictionAlert(ctx context.Context, r *models.AccountRestriction) error {
	msg := fmt.Sprintf("⚠️ Automatic restriction ⚠️\nuser `%s`: %s", r.UserID, r.Reason)
	if r.EndAt != nil {
		msg += fmt.Sprintf("\nexpires `%s`", r.EndAt.UTC().Format(time.RFC3339))
	}
	return n.sendMsg(ctx, msg)
}

func (n *WebhookNotifier) sendMsg(ctx context.Context, msg string) error {
	body, err := json.Marshal(webhookBody{Text: msg})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.WebhookURL, bytes.NewBuffer(body))
	if err != nil {
		return err
	}
	req.Header.Add("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != 200 {
		return fmt.Errorf("failed webhook POST request. status=%d", resp.StatusCode)
	}
	return nil
}

// notifyAutomaticRestriction fires the admin alert in the background, at
// most once per user per day (deduped through the countstore).
func (eng *Engine) notifyAutomaticRestriction(userID string, r *models.AccountRestriction) {
	if eng.Notifier == nil || eng.Notifier.WebhookURL == "" {
		return
	}

	ctx := context.Background()
	if eng.Counters != nil {
		existing, err := eng.Counters.GetCount(ctx, "notify-restrict", userID, countstore.PeriodDay)
		if err != nil {
			eng.Logger.Error("notifier dedupe read failed", "uid", userID, "err", err)
			return
		}
		if existing > 0 {
			eng.Logger.Debug("skipping restriction alert due to dedupe counter", "uid", userID)
			return
		}
		if err := eng.Counters.Increment(ctx, "notify-restrict", userID); err != nil {
			eng.Logger.Error("notifier dedupe increment failed", "uid", userID, "err", err)
		}
	}

	go func() {
		sendCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := eng.Notifier.SendRestrictionAlert(sendCtx, r); err != nil {
			notifierSentCount.WithLabelValues("error").Inc()
			eng.Logger.Error("restriction alert delivery failed", "uid", userID, "err", err)
			return
		}
		notifierSentCount.WithLabelValues("ok").Inc()
	}()
}
