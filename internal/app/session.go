package app

import (
	"errors"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"quizroom/internal/domain"
)

// maxCodeAttempts bounds code and participant id generation. With 36^6
// possible codes it is never reached in practice.
const maxCodeAttempts = 1000

var errCodeSpaceExhausted = errors.New("could not allocate a unique code")

// Session is the in-memory state of one quiz: its questions, participants and
// access lists. All mutations are serialized by mu.
type Session struct {
	code      string
	title     string
	questions []domain.Question
	createdAt time.Time
	now       func() time.Time
	newID     func() string

	mu           sync.RWMutex
	participants map[string]*domain.Participant
	order        []string // participant ids in join order
	whitelist    map[string]struct{}
	blacklist    map[string]struct{}
}

// NewSession is exported for infrastructure layers and tests that need to
// seed a registry directly. The draft must already be normalized.
func NewSession(code string, draft domain.QuizDraft, newID func() string) *Session {
	return newSessionWithClock(code, draft, newID, time.Now)
}

func newSessionWithClock(code string, draft domain.QuizDraft, newID func() string, now func() time.Time) *Session {
	return &Session{
		code:         code,
		title:        draft.Title,
		questions:    draft.Questions,
		createdAt:    now(),
		now:          now,
		newID:        newID,
		participants: make(map[string]*domain.Participant),
		whitelist:    make(map[string]struct{}),
		blacklist:    make(map[string]struct{}),
	}
}

// Code returns the join code the session is registered under.
func (s *Session) Code() string {
	return s.code
}

// Summary returns a read-only view of the quiz.
func (s *Session) Summary() domain.QuizSummary {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return domain.QuizSummary{
		Code:         s.code,
		Title:        s.title,
		Questions:    len(s.questions),
		Participants: len(s.participants),
		CreatedAt:    s.createdAt,
	}
}

func (s *Session) join(name, ip string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", domain.ErrEmptyName
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.admitLocked(ip); err != nil {
		return "", err
	}

	id, err := s.newParticipantIDLocked()
	if err != nil {
		return "", err
	}
	s.participants[id] = &domain.Participant{
		ID:       id,
		Name:     name,
		IP:       ip,
		Answers:  [][]int{},
		JoinedAt: s.now(),
	}
	s.order = append(s.order, id)
	return id, nil
}

// admitLocked applies the access lists: the blacklist always wins, a
// non-empty whitelist admits only its members.
func (s *Session) admitLocked(ip string) error {
	if _, denied := s.blacklist[ip]; denied {
		return domain.ErrAccessDenied
	}
	if len(s.whitelist) > 0 {
		if _, allowed := s.whitelist[ip]; !allowed {
			return domain.ErrAccessRestricted
		}
	}
	return nil
}

func (s *Session) newParticipantIDLocked() (string, error) {
	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		id := s.newID()
		if _, taken := s.participants[id]; !taken {
			return id, nil
		}
	}
	return "", errCodeSpaceExhausted
}

// allow adds ip to the whitelist, removing it from the blacklist first.
func (s *Session) allow(ip string) domain.AccessLists {
	return s.moveIP(ip, s.whitelist, s.blacklist)
}

// deny adds ip to the blacklist, removing it from the whitelist first.
func (s *Session) deny(ip string) domain.AccessLists {
	return s.moveIP(ip, s.blacklist, s.whitelist)
}

func (s *Session) moveIP(ip string, into, from map[string]struct{}) domain.AccessLists {
	ip = strings.TrimSpace(ip)

	s.mu.Lock()
	defer s.mu.Unlock()
	if ip != "" {
		delete(from, ip)
		into[ip] = struct{}{}
	}
	return s.accessLocked()
}

func (s *Session) unallow(ip string) domain.AccessLists {
	return s.dropIP(ip, s.whitelist)
}

func (s *Session) undeny(ip string) domain.AccessLists {
	return s.dropIP(ip, s.blacklist)
}

func (s *Session) dropIP(ip string, list map[string]struct{}) domain.AccessLists {
	ip = strings.TrimSpace(ip)

	s.mu.Lock()
	defer s.mu.Unlock()
	if ip != "" {
		delete(list, ip)
	}
	return s.accessLocked()
}

func (s *Session) access() domain.AccessLists {
	s.mu.RLock()
	defer s.mu.RUnlock()
	lists := s.accessLocked()
	lists.Participants = make([]domain.ParticipantAccess, 0, len(s.order))
	for _, id := range s.order {
		p := s.participants[id]
		lists.Participants = append(lists.Participants, domain.ParticipantAccess{
			ParticipantID: p.ID,
			Name:          p.Name,
			IP:            p.IP,
		})
	}
	return lists
}

func (s *Session) accessLocked() domain.AccessLists {
	return domain.AccessLists{
		Whitelist: sortedKeys(s.whitelist),
		Blacklist: sortedKeys(s.blacklist),
	}
}

func (s *Session) currentQuestion(participantID string) (domain.QuestionView, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	participant, ok := s.participants[participantID]
	if !ok {
		return domain.QuestionView{}, domain.ErrParticipantNotFound
	}

	index := len(participant.Answers)
	view := domain.QuestionView{Index: index, Total: len(s.questions)}
	if index >= len(s.questions) {
		view.Completed = true
		return view, nil
	}

	question := s.questions[index]
	view.Text = question.Text
	view.Image = question.Image
	view.Multiple = len(question.Correct) > 1
	view.Options = make([]domain.OptionView, len(question.Options))
	for i, opt := range question.Options {
		view.Options[i] = domain.OptionView{Index: i, Text: opt.Text, Image: opt.Image}
	}
	return view, nil
}

// submitAnswer records the selection for the participant's next question and
// scores it. Answers are append-only; there is no way back to an earlier question.
func (s *Session) submitAnswer(participantID string, selected []int) (domain.Progress, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	participant, ok := s.participants[participantID]
	if !ok {
		return domain.Progress{}, domain.ErrParticipantNotFound
	}
	index := len(participant.Answers)
	if index >= len(s.questions) {
		return domain.Progress{}, domain.ErrQuizCompleted
	}

	question := s.questions[index]
	answer := domain.NormalizeSelection(selected, len(question.Options))
	participant.Answers = append(participant.Answers, answer)

	correct := domain.SameSet(answer, question.Correct)
	if correct {
		participant.Score++
	}

	return domain.Progress{
		Answered:  len(participant.Answers),
		Total:     len(s.questions),
		Score:     participant.Score,
		Correct:   correct,
		Completed: len(participant.Answers) == len(s.questions),
	}, nil
}

func (s *Session) result(participantID string) (domain.Result, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	participant, ok := s.participants[participantID]
	if !ok {
		return domain.Result{}, domain.ErrParticipantNotFound
	}

	total := len(s.questions)
	result := domain.Result{
		ParticipantID: participant.ID,
		Name:          participant.Name,
		Questions:     make([]domain.QuestionResult, total),
		Score:         participant.Score,
		Total:         total,
		Percent:       percent(participant.Score, total),
		Points:        participant.Score * 100,
		Completed:     len(participant.Answers) == total,
	}
	for i, question := range s.questions {
		qr := domain.QuestionResult{
			Text:     question.Text,
			Expected: optionTexts(question, question.Correct),
			Selected: []string{},
		}
		if i < len(participant.Answers) {
			qr.Answered = true
			qr.Selected = optionTexts(question, participant.Answers[i])
			qr.Correct = domain.SameSet(participant.Answers[i], question.Correct)
		}
		result.Questions[i] = qr
	}
	return result, nil
}

// scoreboard orders participants by score, highest first; equal scores keep
// join order.
func (s *Session) scoreboard() domain.Scoreboard {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := make([]domain.ScoreboardEntry, 0, len(s.order))
	for _, id := range s.order {
		p := s.participants[id]
		entries = append(entries, domain.ScoreboardEntry{
			ParticipantID: p.ID,
			Name:          p.Name,
			Score:         p.Score,
			Answered:      len(p.Answers),
		})
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Score > entries[j].Score
	})
	for i := range entries {
		entries[i].Rank = i + 1
	}

	return domain.Scoreboard{
		Code:      s.code,
		Title:     s.title,
		Total:     len(s.questions),
		Entries:   entries,
		UpdatedAt: s.now(),
	}
}

func percent(score, total int) int {
	if total == 0 {
		return 0
	}
	return int(math.Round(float64(score) / float64(total) * 100))
}

func optionTexts(question domain.Question, indices []int) []string {
	texts := make([]string, 0, len(indices))
	for _, idx := range indices {
		if idx >= 0 && idx < len(question.Options) {
			texts = append(texts, question.Options[idx].Text)
		}
	}
	return texts
}

func sortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
