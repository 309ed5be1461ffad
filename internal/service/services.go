package service

import (
	"github.com/arjun/temporary-social/internal/config"
	"github.com/arjun/temporary-social/internal/gateway"
	"github.com/arjun/temporary-social/internal/notify"
	"github.com/arjun/temporary-social/internal/repository"
)

type Services struct {
	OTP     *OTPService
	Session *SessionService
	Message *MessageService
	Payment *PaymentService
	Profile *ProfileService
}

func NewServices(repos *repository.Repositories, notifier notify.Notifier, gw gateway.Gateway, cfg *config.Config) *Services {
	messages := NewMessageService(repos.Message, repos.User, cfg)
	return &Services{
		OTP:     NewOTPService(repos.OTP, notifier, cfg),
		Session: NewSessionService(repos.User, cfg),
		Message: messages,
		Payment: NewPaymentService(repos.Payment, repos.User, messages, gw, cfg),
		Profile: NewProfileService(repos.User, repos.Follow),
	}
}
