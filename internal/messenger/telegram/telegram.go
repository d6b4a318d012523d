// Package telegram implements the messenger port on top of the MTProto
// user API via gotd. Every operation builds a short-lived client around the
// caller's secret blob; nothing is cached between calls.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gotd/td/telegram"
	"github.com/gotd/td/telegram/auth"
	"github.com/gotd/td/tg"

	"github.com/quorix-labs/botlink/internal/domain"
	"github.com/quorix-labs/botlink/internal/logger"
	"github.com/quorix-labs/botlink/internal/messenger"
)

// Adapter talks to Telegram as a user account. It satisfies
// messenger.Adapter.
type Adapter struct {
	appID   int
	appHash string
}

// New returns an Adapter bound to one Telegram application registration.
func New(appID int, appHash string) *Adapter {
	return &Adapter{appID: appID, appHash: appHash}
}

// newClient builds a client whose session lives in store. The update handler
// is optional; login flows pass nil.
func (a *Adapter) newClient(store *blobStorage, handler telegram.UpdateHandler) *telegram.Client {
	return telegram.NewClient(a.appID, a.appHash, telegram.Options{
		SessionStorage: store,
		UpdateHandler:  handler,
	})
}

// RequestCode asks Telegram to send a login code to phone. The returned
// grant carries the phone code hash plus the half-built session blob that
// SubmitCode needs to finish on the same DC.
func (a *Adapter) RequestCode(ctx context.Context, phone string) (messenger.CodeGrant, error) {
	store := newBlobStorage(nil)
	client := a.newClient(store, nil)

	var grant messenger.CodeGrant
	err := client.Run(ctx, func(ctx context.Context) error {
		sent, err := client.Auth().SendCode(ctx, phone, auth.SendCodeOptions{})
		if err != nil {
			return err
		}
		code, ok := sent.(*tg.AuthSentCode)
		if !ok {
			return fmt.Errorf("%w: unexpected sent code %T", domain.ErrExternalUnavailable, sent)
		}
		grant.CodeHash = code.PhoneCodeHash
		return nil
	})
	if err != nil {
		return messenger.CodeGrant{}, classify(err)
	}
	grant.TempSecretBlob = store.Bytes()
	return grant, nil
}

// SubmitCode finishes the login started by RequestCode. When the account has
// two-factor auth enabled and req.Password is empty, the caller gets an
// AuthCodeError asking for the password; with a password present the SRP
// check runs in the same call.
func (a *Adapter) SubmitCode(ctx context.Context, req messenger.SubmitCodeRequest) (messenger.LoginResult, error) {
	store := newBlobStorage(req.TempSecretBlob)
	client := a.newClient(store, nil)

	var result messenger.LoginResult
	err := client.Run(ctx, func(ctx context.Context) error {
		authz, err := client.Auth().SignIn(ctx, req.Phone, req.Code, req.CodeHash)
		if errors.Is(err, auth.ErrPasswordAuthNeeded) {
			if req.Password == "" {
				return err
			}
			authz, err = client.Auth().Password(ctx, req.Password)
		}
		if err != nil {
			return err
		}
		user, ok := authz.User.(*tg.User)
		if !ok {
			return fmt.Errorf("%w: unexpected authorization user %T", domain.ErrExternalUnavailable, authz.User)
		}
		result.ExternalUserID = strconv.FormatInt(user.ID, 10)
		result.ExternalUsername = user.Username
		return nil
	})
	if err != nil {
		return messenger.LoginResult{}, classify(err)
	}
	result.SecretBlob = store.Bytes()
	if len(result.SecretBlob) == 0 {
		return messenger.LoginResult{}, fmt.Errorf("%w: sign-in produced no session", domain.ErrExternalUnavailable)
	}
	return result, nil
}

// ProbeAuthorized checks whether the blob still opens an authorized session.
// A dead or revoked session is a normal answer here, not an error.
func (a *Adapter) ProbeAuthorized(ctx context.Context, secretBlob []byte) (bool, error) {
	store := newBlobStorage(secretBlob)
	client := a.newClient(store, nil)

	var authorized bool
	err := client.Run(ctx, func(ctx context.Context) error {
		status, err := client.Auth().Status(ctx)
		if err != nil {
			return err
		}
		authorized = status.Authorized
		return nil
	})
	if err != nil {
		err = classify(err)
		if errors.Is(err, domain.ErrUnauthorizedSession) || errors.Is(err, domain.ErrAuthCode) {
			return false, nil
		}
		return false, err
	}
	return authorized, nil
}

// RunListener opens the session and streams inbound user messages to
// hooks.OnMessage until ctx is cancelled or the connection drops. The
// session must already be authorized.
func (a *Adapter) RunListener(ctx context.Context, secretBlob []byte, hooks messenger.ListenerHooks) error {
	store := newBlobStorage(secretBlob)
	dispatcher := tg.NewUpdateDispatcher()
	dispatcher.OnNewMessage(func(_ context.Context, e tg.Entities, u *tg.UpdateNewMessage) error {
		if msg, ok := inboundMessage(e, u); ok && hooks.OnMessage != nil {
			hooks.OnMessage(msg)
		}
		return nil
	})
	client := a.newClient(store, dispatcher)

	err := client.Run(ctx, func(ctx context.Context) error {
		status, err := client.Auth().Status(ctx)
		if err != nil {
			return err
		}
		if !status.Authorized {
			return domain.ErrUnauthorizedSession
		}
		logger.Debug(LogMsgListenerConnected)
		if hooks.OnReady != nil {
			hooks.OnReady()
		}
		<-ctx.Done()
		return ctx.Err()
	})
	return classify(err)
}

// inboundMessage maps a raw update onto the adapter-neutral message shape.
// Outgoing and service messages are skipped.
func inboundMessage(e tg.Entities, u *tg.UpdateNewMessage) (messenger.Message, bool) {
	m, ok := u.Message.(*tg.Message)
	if !ok || m.Out {
		return messenger.Message{}, false
	}

	msg := messenger.Message{
		ConversationID: peerID(m.PeerID),
		Body:           m.Message,
		ReceivedAt:     time.Unix(int64(m.Date), 0).UTC(),
	}
	if msg.ConversationID == "" {
		return messenger.Message{}, false
	}

	sender := m.PeerID
	if from, ok := m.GetFromID(); ok {
		sender = from
	}
	msg.SenderID = peerID(sender)
	if p, ok := sender.(*tg.PeerUser); ok {
		if user, ok := e.Users[p.UserID]; ok {
			msg.SenderDisplay = displayName(user)
		}
	}
	return msg, true
}

func peerID(peer tg.PeerClass) string {
	switch p := peer.(type) {
	case *tg.PeerUser:
		return strconv.FormatInt(p.UserID, 10)
	case *tg.PeerChat:
		return strconv.FormatInt(p.ChatID, 10)
	case *tg.PeerChannel:
		return strconv.FormatInt(p.ChannelID, 10)
	default:
		return ""
	}
}

func displayName(user *tg.User) string {
	if user.Username != "" {
		return user.Username
	}
	name := strings.TrimSpace(user.FirstName + " " + user.LastName)
	return name
}
