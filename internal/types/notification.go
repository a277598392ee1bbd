package types

import (
	"fmt"

	"github.com/samber/lo"
)

// NotificationType tags the reason a notification is being sent
type NotificationType string

const (
	NotificationTypeTrialEnding           NotificationType = "TRIAL_ENDING"
	NotificationTypeSubscriptionActivated NotificationType = "SUBSCRIPTION_ACTIVATED"
	NotificationTypeSubscriptionExpired   NotificationType = "SUBSCRIPTION_EXPIRED"
	NotificationTypeEnterpriseEnding      NotificationType = "ENTERPRISE_ENDING"
	NotificationTypePaymentFailed         NotificationType = "PAYMENT_FAILED"
)

func (t NotificationType) String() string {
	return string(t)
}

func (t NotificationType) Validate() error {
	allowed := []NotificationType{
		NotificationTypeTrialEnding,
		NotificationTypeSubscriptionActivated,
		NotificationTypeSubscriptionExpired,
		NotificationTypeEnterpriseEnding,
		NotificationTypePaymentFailed,
	}
	if !lo.Contains(allowed, t) {
		return fmt.Errorf("invalid notification type: %s", t)
	}
	return nil
}
