package bot

import (
	"context"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingHandler logs processed messages and can block or panic on request.
type recordingHandler struct {
	mu      sync.Mutex
	handled []string
	blockCh chan struct{} // Close to let a BLOCK message finish
	waitCh  chan struct{} // Closed when a BLOCK message starts
}

func newRecordingHandler() *recordingHandler {
	return &recordingHandler{blockCh: make(chan struct{}), waitCh: make(chan struct{})}
}

func (h *recordingHandler) HandleSessionMessage(ctx context.Context, session *UserSession, msg SessionMessage) {
	h.mu.Lock()
	h.handled = append(h.handled, msg.Text)
	h.mu.Unlock()

	switch msg.Text {
	case "PANIC":
		panic("simulated worker panic")
	case "BLOCK":
		close(h.waitCh)
		<-h.blockCh
	}
}

func (h *recordingHandler) log() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.handled...)
}

func startSession(id int64, handler MessageHandler, sender MessageSender) *UserSession {
	ctx, cancel := context.WithCancel(context.Background())
	s := &UserSession{
		userId:  id,
		sender:  sender,
		inbox:   make(chan SessionMessage, 10),
		ctx:     ctx,
		cancel:  cancel,
		handler: handler,
	}
	s.StartWorker()
	return s
}

func TestWorker_ProcessesInOrder(t *testing.T) {
	handler := newRecordingHandler()
	session := startSession(123, handler, nil)
	defer session.Stop()

	for _, txt := range []string{"progress", "complete", "callback"} {
		session.Send(SessionMessage{Text: txt})
	}
	session.SendSync(SessionMessage{Text: "barrier"})

	assert.Equal(t, []string{"progress", "complete", "callback", "barrier"}, handler.log())
}

func TestWorker_SurvivesPanic(t *testing.T) {
	handler := newRecordingHandler()
	session := startSession(123, handler, nil)
	defer session.Stop()

	session.SendSync(SessionMessage{Text: "PANIC"})
	session.SendSync(SessionMessage{Text: "after"})

	assert.Equal(t, []string{"PANIC", "after"}, handler.log())
}

func TestWorker_UsersDoNotBlockEachOther(t *testing.T) {
	slow := newRecordingHandler()
	sessionA := startSession(1, slow, nil)
	defer sessionA.Stop()

	fast := newRecordingHandler()
	sessionB := startSession(2, fast, nil)
	defer sessionB.Stop()

	go sessionA.SendSync(SessionMessage{Text: "BLOCK"})
	select {
	case <-slow.waitCh:
	case <-time.After(time.Second):
		t.Fatal("session A did not start processing")
	}

	sessionB.SendSync(SessionMessage{Text: "fast"})
	assert.Equal(t, []string{"fast"}, fast.log())
	assert.Equal(t, []string{"BLOCK"}, slow.log())

	close(slow.blockCh)
}

func TestWorker_StopDrainsPendingMessages(t *testing.T) {
	handler := newRecordingHandler()
	session := startSession(999, handler, nil)

	go session.SendSync(SessionMessage{Text: "BLOCK"})
	<-handler.waitCh

	// Queued behind the blocked message; Stop must release their waiters.
	waiters := make([]chan struct{}, 3)
	for i := range waiters {
		waiters[i] = make(chan struct{})
		session.inbox <- SessionMessage{Text: "pending", Done: waiters[i]}
	}

	stopped := make(chan struct{})
	go func() {
		session.Stop()
		close(stopped)
	}()
	close(handler.blockCh)

	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("Stop() timed out - potential deadlock")
	}
	for _, done := range waiters {
		select {
		case <-done:
		default:
			t.Fatal("pending message waiter was not released")
		}
	}
}

type typingSender struct {
	mu      sync.Mutex
	actions int
}

func (s *typingSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	return tgbotapi.Message{}, nil
}

func (s *typingSender) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	if _, ok := c.(tgbotapi.ChatActionConfig); ok {
		s.mu.Lock()
		s.actions++
		s.mu.Unlock()
	}
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (s *typingSender) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.actions
}

func TestSession_TypingIndicator(t *testing.T) {
	sender := &typingSender{}
	session := startSession(1, newRecordingHandler(), sender)
	defer session.Stop()

	session.startTyping(session.ctx)
	require.Eventually(t, func() bool { return sender.count() == 1 }, time.Second, 5*time.Millisecond)

	session.stopTypingIndicator()
	assert.Nil(t, session.stopTyping)
}
