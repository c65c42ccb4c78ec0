package chat

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/health-assistant/backend/internal/i18n"
	"github.com/zhouzirui/health-assistant/backend/internal/language"
	"github.com/zhouzirui/health-assistant/backend/internal/model/chat"
	"github.com/zhouzirui/health-assistant/backend/internal/model/notification"
	"github.com/zhouzirui/health-assistant/backend/internal/service/answer"
	"github.com/zhouzirui/health-assistant/backend/internal/service/translate"
)

type stubTranslator struct {
	mu    sync.Mutex
	out   map[language.Tag]string
	calls []string
}

func (s *stubTranslator) Translate(_ context.Context, text string, _, target language.Tag) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, text)
	if out, ok := s.out[target]; ok {
		return out
	}
	return "[Translation unavailable] " + text
}

type recordingNotifier struct {
	mu    sync.Mutex
	shown []notification.Notification
}

func (r *recordingNotifier) Show(title, description string, kind notification.Kind) notification.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := notification.Notification{Title: title, Description: description, Kind: kind}
	r.shown = append(r.shown, n)
	return n
}

func (r *recordingNotifier) all() []notification.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]notification.Notification(nil), r.shown...)
}

type providerFunc func(ctx context.Context, text string, source, target language.Tag) (string, error)

func (f providerFunc) Name() string { return "stub" }

func (f providerFunc) Translate(ctx context.Context, text string, source, target language.Tag) (string, error) {
	return f(ctx, text, source, target)
}

func newTestOrchestrator(tr Translator, a answer.Answerer) (*Orchestrator, *recordingNotifier) {
	n := &recordingNotifier{}
	return NewOrchestrator(NewHistory(nil), tr, a, n, nil), n
}

func TestSubmitRemoteFailureAppendsApology(t *testing.T) {
	var got answer.Request
	asker := answer.Func(func(_ context.Context, req answer.Request) (answer.Response, error) {
		got = req
		return answer.Response{}, errors.New("connection refused")
	})
	tr := &stubTranslator{out: map[language.Tag]string{language.Bengali: "২৫ কি প্যাপ স্মিয়ারের জন্য দেরি?"}}
	o, n := newTestOrchestrator(tr, asker)

	out, err := o.Submit(context.Background(), "Is 25 too late for a Pap smear?")
	require.NoError(t, err)
	require.True(t, out.Failed)
	require.Error(t, out.Err)

	require.Equal(t, "Is 25 too late for a Pap smear?", got.Question)
	require.Equal(t, language.English, got.OriginalLanguage)
	require.Equal(t, language.Bengali, got.Language)

	msgs := o.History().List()
	require.Len(t, msgs, 2)
	require.Equal(t, chat.RoleUser, msgs[0].Role)
	require.Equal(t, language.English, msgs[0].Language)
	require.Equal(t, chat.RoleBot, msgs[1].Role)
	require.Equal(t, "দুঃখিত, আমি এই মুহূর্তে আপনার প্রশ্নের উত্তর দিতে পারছি না। অনুগ্রহ করে পরে আবার চেষ্টা করুন।", msgs[1].Text)
	require.Equal(t, "২৫ কি প্যাপ স্মিয়ারের জন্য দেরি?", msgs[1].TranslatedQuestion)

	shown := n.all()
	require.Len(t, shown, 1)
	require.Equal(t, notification.KindError, shown[0].Kind)
	require.Equal(t, i18n.UI().T(i18n.MsgAnswerFailed), shown[0].Description)

	require.Equal(t, StateIdle, o.State())
}

func TestSubmitEnglishQuestionTranslatesAnswer(t *testing.T) {
	asker := answer.Func(func(_ context.Context, req answer.Request) (answer.Response, error) {
		return answer.Response{Answer: "Cervical screening should start at 21."}, nil
	})
	tr := &stubTranslator{out: map[language.Tag]string{language.Bengali: "বাংলা অনুবাদ"}}
	o, n := newTestOrchestrator(tr, asker)

	out, err := o.Submit(context.Background(), "When should screening start?")
	require.NoError(t, err)
	require.False(t, out.Failed)
	require.Equal(t, "বাংলা অনুবাদ", out.Bot.Text)
	require.Equal(t, language.Bengali, out.Bot.Language)
	require.Equal(t, "When should screening start?", out.Bot.OriginalQuestion)
	require.Equal(t, language.English, out.Bot.QuestionLanguage)
	require.Empty(t, n.all())

	// transparency translation plus answer translation
	require.Len(t, tr.calls, 2)
	require.Equal(t, "Cervical screening should start at 21.", tr.calls[1])
}

func TestSubmitMixedScriptAnswerIsTranslated(t *testing.T) {
	asker := answer.Func(func(_ context.Context, req answer.Request) (answer.Response, error) {
		return answer.Response{Answer: "Please see a doctor (ডাক্তার) for screening."}, nil
	})
	tr := &stubTranslator{out: map[language.Tag]string{language.Bengali: "স্ক্রিনিংয়ের জন্য ডাক্তার দেখান।"}}
	o, _ := newTestOrchestrator(tr, asker)

	out, err := o.Submit(context.Background(), "Where should I get screened?")
	require.NoError(t, err)
	require.Equal(t, language.Bengali, out.Bot.Language)
	require.Equal(t, "স্ক্রিনিংয়ের জন্য ডাক্তার দেখান।", out.Bot.Text)
	require.Len(t, tr.calls, 2)
	require.Equal(t, "Please see a doctor (ডাক্তার) for screening.", tr.calls[1])
}

func TestSubmitBengaliQuestionSendsTranslation(t *testing.T) {
	var got answer.Request
	asker := answer.Func(func(_ context.Context, req answer.Request) (answer.Response, error) {
		got = req
		return answer.Response{Answer: "Yes, men can get breast cancer."}, nil
	})
	tr := &stubTranslator{out: map[language.Tag]string{language.English: "Can men get breast cancer?"}}
	o, _ := newTestOrchestrator(tr, asker)

	out, err := o.Submit(context.Background(), "পুরুষদের কি স্তন ক্যান্সার হতে পারে?")
	require.NoError(t, err)
	require.Equal(t, "Can men get breast cancer?", got.Question)
	require.Equal(t, language.Bengali, got.OriginalLanguage)
	require.Equal(t, language.English, got.Language)
	require.Equal(t, language.English, out.Bot.Language)
	require.Equal(t, "Yes, men can get breast cancer.", out.Bot.Text)
	require.Len(t, tr.calls, 1)
}

func TestSubmitEmptyAnswerUsesDefault(t *testing.T) {
	asker := answer.Func(func(_ context.Context, req answer.Request) (answer.Response, error) {
		return answer.Response{}, nil
	})
	tr := &stubTranslator{out: map[language.Tag]string{language.English: "question"}}
	o, _ := newTestOrchestrator(tr, asker)

	out, err := o.Submit(context.Background(), "প্রশ্ন")
	require.NoError(t, err)
	require.Equal(t, i18n.MsgDefaultAnswer, out.Bot.Text)
}

func TestSubmitRejectsEmptyInput(t *testing.T) {
	o, _ := newTestOrchestrator(&stubTranslator{}, answer.Func(func(context.Context, answer.Request) (answer.Response, error) {
		t.Fatal("answerer must not be called")
		return answer.Response{}, nil
	}))

	for _, raw := range []string{"", "   ", "\n\t"} {
		_, err := o.Submit(context.Background(), raw)
		require.ErrorIs(t, err, ErrEmptyInput)
	}
	require.Zero(t, o.History().Len())
}

func TestSubmitWhileBusyIsIgnored(t *testing.T) {
	release := make(chan struct{})
	entered := make(chan struct{})
	asker := answer.Func(func(ctx context.Context, req answer.Request) (answer.Response, error) {
		close(entered)
		<-release
		return answer.Response{Answer: "ok"}, nil
	})
	o, _ := newTestOrchestrator(&stubTranslator{out: map[language.Tag]string{language.Bengali: "ঠিক"}}, asker)

	done := make(chan error, 1)
	go func() {
		_, err := o.Submit(context.Background(), "first question")
		done <- err
	}()
	<-entered

	require.Equal(t, StateSubmitting, o.State())
	_, err := o.Submit(context.Background(), "second question")
	require.ErrorIs(t, err, ErrBusy)

	close(release)
	require.NoError(t, <-done)
	require.Equal(t, 2, o.History().Len())
	require.Equal(t, StateIdle, o.State())
}

func TestStateIsTranslatingDuringProviderCall(t *testing.T) {
	var o *Orchestrator
	var observed []State
	provider := providerFunc(func(_ context.Context, text string, _, _ language.Tag) (string, error) {
		observed = append(observed, o.State())
		return "অনুবাদ " + text, nil
	})
	chain := translate.NewChain(provider, nil)
	asker := answer.Func(func(context.Context, answer.Request) (answer.Response, error) {
		observed = append(observed, o.State())
		return answer.Response{Answer: "উত্তর"}, nil
	})
	o, _ = newTestOrchestrator(chain, asker)

	_, err := o.Submit(context.Background(), "hello")
	require.NoError(t, err)
	require.Equal(t, []State{StateTranslating, StateSubmitting}, observed)
	require.Equal(t, StateIdle, o.State())
}

func TestSubmitClearsInputOnBothPaths(t *testing.T) {
	fail := true
	asker := answer.Func(func(context.Context, answer.Request) (answer.Response, error) {
		if fail {
			return answer.Response{}, errors.New("boom")
		}
		return answer.Response{Answer: "fine"}, nil
	})
	o, _ := newTestOrchestrator(&stubTranslator{}, asker)

	o.SetInput("first")
	o.AppendInput("part")
	require.Equal(t, "first part", o.Input())
	_, err := o.SubmitInput(context.Background())
	require.NoError(t, err)
	require.Empty(t, o.Input())

	fail = false
	o.SetInput("second")
	_, err = o.SubmitInput(context.Background())
	require.NoError(t, err)
	require.Empty(t, o.Input())
	require.Equal(t, 4, o.History().Len())
}

func TestSubmitRecoversFromAnswererPanic(t *testing.T) {
	asker := answer.Func(func(context.Context, answer.Request) (answer.Response, error) {
		panic("nil map")
	})
	o, n := newTestOrchestrator(&stubTranslator{out: map[language.Tag]string{language.Bengali: "অনুবাদ"}}, asker)

	out, err := o.Submit(context.Background(), "question")
	require.NoError(t, err)
	require.True(t, out.Failed)
	require.Equal(t, 2, o.History().Len())
	require.Len(t, n.all(), 1)
	require.Equal(t, StateIdle, o.State())

	// the orchestrator accepts the next question
	_, err = o.Submit(context.Background(), "another")
	require.NoError(t, err)
}

func TestHistoryGrowsByTwoPerAcceptedSubmit(t *testing.T) {
	asker := answer.Func(func(context.Context, answer.Request) (answer.Response, error) {
		return answer.Response{Answer: "a"}, nil
	})
	o, _ := newTestOrchestrator(&stubTranslator{}, asker)

	for i := 0; i < 5; i++ {
		_, err := o.Submit(context.Background(), "q")
		require.NoError(t, err)
		require.Equal(t, 2*(i+1), o.History().Len())
	}
	_, _ = o.Submit(context.Background(), " ")
	require.Equal(t, 10, o.History().Len())
}

func TestBackgroundTranslationReturnsToIdle(t *testing.T) {
	chain := translate.NewChain(providerFunc(func(context.Context, string, language.Tag, language.Tag) (string, error) {
		return "x", nil
	}), nil)
	o, _ := newTestOrchestrator(chain, answer.Func(func(context.Context, answer.Request) (answer.Response, error) {
		return answer.Response{}, nil
	}))

	done := make(chan struct{})
	go func() {
		chain.Translate(context.Background(), "hello", language.English, language.Bengali)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("translation did not finish")
	}
	require.Equal(t, StateIdle, o.State())
}
