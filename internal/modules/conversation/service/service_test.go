package service

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"scholarhub.app/scholarhub/internal/model"
	"scholarhub.app/scholarhub/pkg/apperror"
)

// fakeConversationRepo keeps conversations in memory.
type fakeConversationRepo struct {
	mu       sync.Mutex
	convs    map[uuid.UUID]*model.Conversation
	messages map[uuid.UUID][]model.Message
}

func newFakeRepo() *fakeConversationRepo {
	return &fakeConversationRepo{
		convs:    make(map[uuid.UUID]*model.Conversation),
		messages: make(map[uuid.UUID][]model.Message),
	}
}

func (f *fakeConversationRepo) add(status string, takenOverBy *uuid.UUID) uuid.UUID {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := uuid.New()
	f.convs[id] = &model.Conversation{ID: id, UserID: uuid.New(), Status: status, TakenOverBy: takenOverBy}
	return id
}

func (f *fakeConversationRepo) FindOrCreateByUser(ctx context.Context, userID uuid.UUID) (*model.Conversation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.convs {
		if c.UserID == userID && c.Status != model.ConversationClosed {
			cp := *c
			return &cp, nil
		}
	}
	c := &model.Conversation{ID: uuid.New(), UserID: userID, Status: model.ConversationActive}
	f.convs[c.ID] = c
	cp := *c
	return &cp, nil
}

func (f *fakeConversationRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Conversation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.convs[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *c
	return &cp, nil
}

func (f *fakeConversationRepo) FindByIDWithMessages(ctx context.Context, id uuid.UUID) (*model.Conversation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.convs[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *c
	cp.Messages = append([]model.Message(nil), f.messages[id]...)
	return &cp, nil
}

func (f *fakeConversationRepo) List(ctx context.Context, limit, offset int) ([]model.Conversation, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Conversation
	for _, c := range f.convs {
		out = append(out, *c)
	}
	return out, int64(len(out)), nil
}

func (f *fakeConversationRepo) SetStatus(ctx context.Context, id uuid.UUID, status string, takenOverBy *uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.convs[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	c.Status = status
	c.TakenOverBy = takenOverBy
	return nil
}

func (f *fakeConversationRepo) AppendMessage(ctx context.Context, msg *model.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	msg.ID = uuid.New()
	f.messages[msg.ConversationID] = append(f.messages[msg.ConversationID], *msg)
	return nil
}

func (f *fakeConversationRepo) CountByStatus(ctx context.Context, status string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, c := range f.convs {
		if c.Status == status {
			n++
		}
	}
	return n, nil
}

type scriptedBot struct {
	reply string
	calls int
}

func (b *scriptedBot) Reply(ctx context.Context, conversationID, userMessage string) (string, error) {
	b.calls++
	return b.reply, nil
}

func statusOf(t *testing.T, err error) int {
	t.Helper()
	if err == nil {
		t.Fatal("expected an error")
	}
	return apperror.MapErrorToStatus(err)
}

func TestTakeOverFromActive(t *testing.T) {
	repo := newFakeRepo()
	id := repo.add(model.ConversationActive, nil)
	svc := NewConversationService(repo, nil, nil, 0)
	adminID := uuid.New()

	conv, err := svc.TakeOver(context.Background(), id, adminID)
	if err != nil {
		t.Fatalf("TakeOver: %v", err)
	}
	if conv.Status != model.ConversationTakenOver {
		t.Fatalf("status = %q, want taken_over", conv.Status)
	}
	if conv.TakenOverBy == nil || *conv.TakenOverBy != adminID {
		t.Fatalf("taken_over_by = %v, want %s", conv.TakenOverBy, adminID)
	}
}

func TestTakeOverLastWriterWins(t *testing.T) {
	repo := newFakeRepo()
	id := repo.add(model.ConversationActive, nil)
	svc := NewConversationService(repo, nil, nil, 0)
	first, second := uuid.New(), uuid.New()

	if _, err := svc.TakeOver(context.Background(), id, first); err != nil {
		t.Fatalf("first TakeOver: %v", err)
	}
	conv, err := svc.TakeOver(context.Background(), id, second)
	if err != nil {
		t.Fatalf("second TakeOver: %v", err)
	}
	if conv.TakenOverBy == nil || *conv.TakenOverBy != second {
		t.Fatalf("seat holder = %v, want the later writer %s", conv.TakenOverBy, second)
	}
}

func TestTakeOverClosedConversationConflicts(t *testing.T) {
	repo := newFakeRepo()
	id := repo.add(model.ConversationClosed, nil)
	svc := NewConversationService(repo, nil, nil, 0)

	_, err := svc.TakeOver(context.Background(), id, uuid.New())
	if got := statusOf(t, err); got != http.StatusConflict {
		t.Fatalf("status = %d, want 409", got)
	}
}

func TestReleaseRequiresSeatHolder(t *testing.T) {
	repo := newFakeRepo()
	holder := uuid.New()
	id := repo.add(model.ConversationTakenOver, &holder)
	svc := NewConversationService(repo, nil, nil, 0)

	_, err := svc.Release(context.Background(), id, uuid.New())
	if got := statusOf(t, err); got != http.StatusConflict {
		t.Fatalf("release by non-holder status = %d, want 409", got)
	}

	conv, err := svc.Release(context.Background(), id, holder)
	if err != nil {
		t.Fatalf("release by holder: %v", err)
	}
	if conv.Status != model.ConversationActive || conv.TakenOverBy != nil {
		t.Fatalf("after release: status=%q holder=%v, want active/nil", conv.Status, conv.TakenOverBy)
	}

	// Releasing an already-active conversation conflicts
	_, err = svc.Release(context.Background(), id, holder)
	if got := statusOf(t, err); got != http.StatusConflict {
		t.Fatalf("double release status = %d, want 409", got)
	}
}

func TestAdminMessageGatedOnTakeover(t *testing.T) {
	repo := newFakeRepo()
	holder := uuid.New()
	active := repo.add(model.ConversationActive, nil)
	taken := repo.add(model.ConversationTakenOver, &holder)
	svc := NewConversationService(repo, nil, nil, 0)
	ctx := context.Background()

	if _, err := svc.AdminMessage(ctx, active, holder, "hello"); err == nil {
		t.Fatal("admin message accepted while bot-controlled")
	}
	if _, err := svc.AdminMessage(ctx, taken, uuid.New(), "hello"); err == nil {
		t.Fatal("admin message accepted from a non-holder")
	}

	msg, err := svc.AdminMessage(ctx, taken, holder, "  hello there  ")
	if err != nil {
		t.Fatalf("AdminMessage: %v", err)
	}
	if msg.ID == uuid.Nil {
		t.Fatal("persisted message has no id")
	}
	if msg.Role != model.MessageRoleAdmin || msg.Content != "hello there" {
		t.Fatalf("message = %+v, want trimmed admin message", msg)
	}
}

func TestAdminMessageRejectsEmptyContent(t *testing.T) {
	repo := newFakeRepo()
	holder := uuid.New()
	id := repo.add(model.ConversationTakenOver, &holder)
	svc := NewConversationService(repo, nil, nil, 0)

	_, err := svc.AdminMessage(context.Background(), id, holder, "   <script>x</script>   x")
	if err != nil {
		t.Fatalf("AdminMessage: %v", err)
	}

	_, err = svc.AdminMessage(context.Background(), id, holder, "   ")
	if !errors.Is(err, apperror.ErrInvalidInput) {
		t.Fatalf("err = %v, want ErrInvalidInput", err)
	}
}

func TestBotStaysSilentWhileTakenOver(t *testing.T) {
	repo := newFakeRepo()
	bot := &scriptedBot{reply: "here is a scholarship"}
	svc := NewConversationService(repo, bot, nil, 0)
	ctx := context.Background()
	userID := uuid.New()

	conv, messages, err := svc.UserMessage(ctx, userID, "hi")
	if err != nil {
		t.Fatalf("UserMessage: %v", err)
	}
	if len(messages) != 2 || messages[1].Role != model.MessageRoleBot {
		t.Fatalf("messages = %+v, want user message plus bot reply", messages)
	}
	if bot.calls != 1 {
		t.Fatalf("bot calls = %d, want 1", bot.calls)
	}

	admin := uuid.New()
	if _, err := svc.TakeOver(ctx, conv.ID, admin); err != nil {
		t.Fatalf("TakeOver: %v", err)
	}

	_, messages, err = svc.UserMessage(ctx, userID, "anyone there?")
	if err != nil {
		t.Fatalf("UserMessage: %v", err)
	}
	if len(messages) != 1 || messages[0].Role != model.MessageRoleUser {
		t.Fatalf("messages while taken over = %+v, want the user message only", messages)
	}
	if bot.calls != 1 {
		t.Fatalf("bot calls = %d, want no call while taken over", bot.calls)
	}
}
