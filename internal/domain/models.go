package domain

import "time"

// OptionKind distinguishes plain-text options from options carrying an image.
type OptionKind int

const (
	OptionPlain OptionKind = iota
	OptionWithImage
)

// Option is one answer choice. Its position inside Question.Options is its identity.
type Option struct {
	Kind  OptionKind
	Text  string
	Image string // set only for OptionWithImage
}

func PlainOption(text string) Option {
	return Option{Kind: OptionPlain, Text: text}
}

func ImageOption(text, image string) Option {
	return Option{Kind: OptionWithImage, Text: text, Image: image}
}

func newOption(text, image string) Option {
	if image == "" {
		return PlainOption(text)
	}
	return ImageOption(text, image)
}

// Question models a multi-select question. Correct holds option indices.
type Question struct {
	Text    string   `json:"text" yaml:"text"`
	Image   string   `json:"image,omitempty" yaml:"image,omitempty"`
	Options []Option `json:"options" yaml:"options"`
	Correct []int    `json:"correct" yaml:"correct"`
}

// QuizDraft is an authoring request before it is assigned a code.
type QuizDraft struct {
	Title     string     `json:"title" yaml:"title"`
	Questions []Question `json:"questions" yaml:"questions"`
}

// Participant is a joined quiz-taker. len(Answers) is the index of the next question.
type Participant struct {
	ID       string
	Name     string
	IP       string
	Answers  [][]int
	Score    int
	JoinedAt time.Time
}

// QuizSummary is a read-only view of a registered quiz.
type QuizSummary struct {
	Code         string    `json:"code"`
	Title        string    `json:"title"`
	Questions    int       `json:"questions"`
	Participants int       `json:"participants"`
	CreatedAt    time.Time `json:"createdAt"`
}

type OptionView struct {
	Index int    `json:"index"`
	Text  string `json:"text"`
	Image string `json:"image,omitempty"`
}

// QuestionView is what a participant sees next. Completed is set once every
// question has been answered, in which case the question fields are empty.
type QuestionView struct {
	Index     int          `json:"index"`
	Total     int          `json:"total"`
	Text      string       `json:"text,omitempty"`
	Image     string       `json:"image,omitempty"`
	Options   []OptionView `json:"options,omitempty"`
	Multiple  bool         `json:"multiple"`
	Completed bool         `json:"completed"`
}

// Progress summarizes a participant right after an answer was recorded.
type Progress struct {
	Answered  int  `json:"answered"`
	Total     int  `json:"total"`
	Score     int  `json:"score"`
	Correct   bool `json:"correct"`
	Completed bool `json:"completed"`
}

type QuestionResult struct {
	Text     string   `json:"text"`
	Selected []string `json:"selected"`
	Expected []string `json:"expected"`
	Answered bool     `json:"answered"`
	Correct  bool     `json:"correct"`
}

// Result is the per-participant summary shown after (or during) the quiz.
type Result struct {
	ParticipantID string           `json:"participantId"`
	Name          string           `json:"name"`
	Questions     []QuestionResult `json:"questions"`
	Score         int              `json:"score"`
	Total         int              `json:"total"`
	Percent       int              `json:"percent"`
	Points        int              `json:"points"`
	Completed     bool             `json:"completed"`
}

// ScoreboardEntry is a snapshot-friendly view of a participant.
type ScoreboardEntry struct {
	Rank          int    `json:"rank"`
	ParticipantID string `json:"participantId"`
	Name          string `json:"name"`
	Score         int    `json:"score"`
	Answered      int    `json:"answered"`
}

// Scoreboard captures the ordered scores for a quiz.
type Scoreboard struct {
	Code      string            `json:"code"`
	Title     string            `json:"title"`
	Total     int               `json:"total"`
	Entries   []ScoreboardEntry `json:"entries"`
	UpdatedAt time.Time         `json:"updatedAt"`
}

type ParticipantAccess struct {
	ParticipantID string `json:"participantId"`
	Name          string `json:"name"`
	IP            string `json:"ip"`
}

// AccessLists is the moderation view of a quiz.
type AccessLists struct {
	Whitelist    []string            `json:"whitelist"`
	Blacklist    []string            `json:"blacklist"`
	Participants []ParticipantAccess `json:"participants,omitempty"`
}
