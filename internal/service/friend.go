package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/jonboulle/clockwork"

	"syncactivity/internal/model"
	"syncactivity/internal/repository"
)

// TxRunner runs fn in a single database transaction.
type TxRunner interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context, tx *sqlx.Tx) error) error
}

// FriendService is the friend request state machine. A pair of users has at
// most one pending request regardless of direction, and friendship is always
// stored on both sides.
type FriendService struct {
	users    repository.UserRepository
	friends  repository.FriendshipRepository
	requests repository.FriendRequestRepository
	tx       TxRunner
	clock    clockwork.Clock
}

func NewFriendService(
	users repository.UserRepository,
	friends repository.FriendshipRepository,
	requests repository.FriendRequestRepository,
	tx TxRunner,
	clock clockwork.Clock,
) *FriendService {
	return &FriendService{
		users:    users,
		friends:  friends,
		requests: requests,
		tx:       tx,
		clock:    clock,
	}
}

// SendRequest creates a pending request from senderID to receiverID.
func (s *FriendService) SendRequest(ctx context.Context, senderID, receiverID uuid.UUID) (*model.FriendRequestView, error) {
	if senderID == receiverID {
		return nil, model.ErrSelfRequest
	}

	sender, err := s.users.GetByID(ctx, senderID)
	if err != nil {
		return nil, err
	}
	receiver, err := s.users.GetByID(ctx, receiverID)
	if err != nil {
		return nil, err
	}

	friends, err := s.friends.AreFriends(ctx, senderID, receiverID)
	if err != nil {
		return nil, err
	}
	if friends {
		return nil, model.ErrAlreadyFriends
	}

	pending, err := s.requests.PendingExists(ctx, senderID, receiverID)
	if err != nil {
		return nil, err
	}
	if pending {
		return nil, model.ErrDuplicatePending
	}

	req := &model.FriendRequest{
		ID:         uuid.New(),
		SenderID:   senderID,
		ReceiverID: receiverID,
		Status:     model.FriendRequestPending,
	}
	if err := s.requests.Create(ctx, req); err != nil {
		return nil, err
	}

	slog.Info("Friend request sent", "request_id", req.ID, "sender_id", senderID, "receiver_id", receiverID)

	return &model.FriendRequestView{
		FriendRequest: *req,
		Sender:        sender.Summary(),
		Receiver:      receiver.Summary(),
	}, nil
}

// respondable loads a request and checks that actor may answer it.
func (s *FriendService) respondable(ctx context.Context, requestID, actorID uuid.UUID) (*model.FriendRequest, error) {
	req, err := s.requests.GetByID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if req.ReceiverID != actorID {
		return nil, model.ErrNotRequestReceiver
	}
	if !req.IsPending() {
		return nil, model.ErrRequestAlreadyProcessed
	}
	return req, nil
}

// Accept marks the request accepted and befriends both parties in one
// transaction.
func (s *FriendService) Accept(ctx context.Context, requestID, actorID uuid.UUID) (*model.FriendRequestView, error) {
	req, err := s.respondable(ctx, requestID, actorID)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	err = s.tx.RunInTx(ctx, func(ctx context.Context, tx *sqlx.Tx) error {
		accepted, err := s.requests.MarkAccepted(ctx, tx, req.ID, now)
		if err != nil {
			return err
		}
		if !accepted {
			return model.ErrRequestAlreadyProcessed
		}
		return s.friends.Add(ctx, tx, req.SenderID, req.ReceiverID)
	})
	if err != nil {
		return nil, err
	}

	req.Status = model.FriendRequestAccepted
	req.UpdatedAt = now

	slog.Info("Friend request accepted", "request_id", req.ID, "sender_id", req.SenderID, "receiver_id", req.ReceiverID)
	return s.view(ctx, req)
}

// view resolves both parties of req for display.
func (s *FriendService) view(ctx context.Context, req *model.FriendRequest) (*model.FriendRequestView, error) {
	sender, err := s.users.GetByID(ctx, req.SenderID)
	if err != nil {
		return nil, err
	}
	receiver, err := s.users.GetByID(ctx, req.ReceiverID)
	if err != nil {
		return nil, err
	}
	return &model.FriendRequestView{
		FriendRequest: *req,
		Sender:        sender.Summary(),
		Receiver:      receiver.Summary(),
	}, nil
}

// Reject removes every request between the pair so a new one can be sent
// right away. The request must still be pending when the transaction runs, so
// a reject racing an accept cannot undo it.
func (s *FriendService) Reject(ctx context.Context, requestID, actorID uuid.UUID) error {
	req, err := s.respondable(ctx, requestID, actorID)
	if err != nil {
		return err
	}

	err = s.tx.RunInTx(ctx, func(ctx context.Context, tx *sqlx.Tx) error {
		deleted, err := s.requests.DeletePending(ctx, tx, req.ID)
		if err != nil {
			return err
		}
		if !deleted {
			return model.ErrRequestAlreadyProcessed
		}
		_, err = s.requests.DeleteBetween(ctx, tx, req.SenderID, req.ReceiverID)
		return err
	})
	if err != nil {
		return err
	}

	slog.Info("Friend request rejected", "request_id", req.ID, "sender_id", req.SenderID, "receiver_id", req.ReceiverID)
	return nil
}

// Unfriend removes the friendship on both sides and purges requests between
// the pair. Removing an absent friendship succeeds.
func (s *FriendService) Unfriend(ctx context.Context, actorID, friendID uuid.UUID) error {
	if _, err := s.users.GetByID(ctx, friendID); err != nil {
		return err
	}

	err := s.tx.RunInTx(ctx, func(ctx context.Context, tx *sqlx.Tx) error {
		if err := s.friends.Remove(ctx, tx, actorID, friendID); err != nil {
			return err
		}
		if _, err := s.requests.DeleteBetween(ctx, tx, actorID, friendID); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("unfriend: %w", err)
	}

	slog.Info("Friend removed", "user_id", actorID, "friend_id", friendID)
	return nil
}

// ListPending returns pending requests sent or received by userID, newest first.
func (s *FriendService) ListPending(ctx context.Context, userID uuid.UUID) ([]model.FriendRequestView, error) {
	return s.requests.ListPending(ctx, userID)
}

// ListFriends resolves the friend set of userID to summaries.
func (s *FriendService) ListFriends(ctx context.Context, userID uuid.UUID) ([]model.UserSummary, error) {
	return s.friends.ListFriends(ctx, userID)
}
