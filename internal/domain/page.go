package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type PageVariant string

const (
	VariantMarkdown PageVariant = "markdown"
	VariantDiagram  PageVariant = "diagram"
	VariantRanking  PageVariant = "ranking"
	VariantQA       PageVariant = "qa"
)

type ConnectorSide string

const (
	SideLeft  ConnectorSide = "left"
	SideRight ConnectorSide = "right"
)

type Section struct {
	ID       string  `json:"id"`
	Text     string  `json:"text"`
	FontSize float64 `json:"fontSize,omitempty"`
}

// Node value must stay within [1,100]; the UI layer enforces the range, the
// engine just carries it.
type Node struct {
	ID       string    `json:"id"`
	Title    string    `json:"title"`
	Color    string    `json:"color"`
	Value    int       `json:"value"`
	X        float64   `json:"x"`
	Y        float64   `json:"y"`
	Sections []Section `json:"sections"`
}

type TextBox struct {
	ID       string  `json:"id"`
	Text     string  `json:"text"`
	Color    string  `json:"color"`
	Value    int     `json:"value"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	FontSize float64 `json:"fontSize,omitempty"`
}

// Connector anchors a link end to either a node section or a text box.
type Connector struct {
	NodeID    string        `json:"nodeId,omitempty"`
	SectionID string        `json:"sectionId,omitempty"`
	TextBoxID string        `json:"textBoxId,omitempty"`
	Side      ConnectorSide `json:"side,omitempty"`
}

type Link struct {
	ID   string    `json:"id"`
	From Connector `json:"from"`
	To   Connector `json:"to"`
}

type RankingItem struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Body  string `json:"body"`
}

type QAAnswer struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"createdAt"`
}

type QACard struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Answers     []QAAnswer `json:"answers"`
	CreatedAt   time.Time  `json:"createdAt"`
}

// Page is a tagged union over Variant. Only the payload fields belonging to
// the variant are populated; the rest stay at their zero values and are
// omitted from the serialized form.
type Page struct {
	ID        string      `json:"id"`
	Variant   PageVariant `json:"variant"`
	Title     string      `json:"title"`
	ProjectID string      `json:"projectId"`
	Owner     string      `json:"owner,omitempty"`
	Version   int64       `json:"version"`
	UpdatedAt time.Time   `json:"updatedAt"`

	// markdown
	Content string `json:"content,omitempty"`

	// diagram
	Nodes     []Node    `json:"nodes,omitempty"`
	TextBoxes []TextBox `json:"textBoxes,omitempty"`
	Links     []Link    `json:"links,omitempty"`

	// ranking
	Items []RankingItem `json:"items,omitempty"`
	Note  string        `json:"note,omitempty"`

	// qa
	Cards []QACard `json:"cards,omitempty"`
}

func (p Page) EntityID() string { return p.ID }

func (p Page) IsMarkdown() bool { return p.Variant == VariantMarkdown }
func (p Page) IsDiagram() bool  { return p.Variant == VariantDiagram }
func (p Page) IsRanking() bool  { return p.Variant == VariantRanking }
func (p Page) IsQA() bool       { return p.Variant == VariantQA }

func newPage(variant PageVariant, title, projectID, owner string) Page {
	return Page{
		ID:        uuid.New().String(),
		Variant:   variant,
		Title:     title,
		ProjectID: projectID,
		Owner:     owner,
		Version:   0,
		UpdatedAt: time.Now(),
	}
}

func NewMarkdownPage(title, projectID, owner string) Page {
	return newPage(VariantMarkdown, title, projectID, owner)
}

func NewDiagramPage(title, projectID, owner string) Page {
	p := newPage(VariantDiagram, title, projectID, owner)
	p.Nodes = []Node{}
	p.TextBoxes = []TextBox{}
	p.Links = []Link{}
	return p
}

func NewRankingPage(title, projectID, owner string) Page {
	p := newPage(VariantRanking, title, projectID, owner)
	p.Items = []RankingItem{}
	return p
}

func NewQAPage(title, projectID, owner string) Page {
	p := newPage(VariantQA, title, projectID, owner)
	p.Cards = []QACard{}
	return p
}

func NewSection(text string) Section {
	return Section{ID: uuid.New().String(), Text: text}
}

func NewRankingItem(title, body string) RankingItem {
	return RankingItem{ID: uuid.New().String(), Title: title, Body: body}
}

func NewQAAnswer(text string) QAAnswer {
	return QAAnswer{ID: uuid.New().String(), Text: text, CreatedAt: time.Now()}
}

func NewQACard(title, description string) QACard {
	return QACard{
		ID:          uuid.New().String(),
		Title:       title,
		Description: description,
		Answers:     []QAAnswer{},
		CreatedAt:   time.Now(),
	}
}

// ClonePage returns a deep copy via the serialized form, which is also the
// equality definition used by change detection.
func ClonePage(p Page) Page {
	raw, err := json.Marshal(p)
	if err != nil {
		return p
	}
	var out Page
	if err := json.Unmarshal(raw, &out); err != nil {
		return p
	}
	return out
}

type CreatePageRequest struct {
	Variant   PageVariant `json:"variant" validate:"required,oneof=markdown diagram ranking qa"`
	Title     string      `json:"title" validate:"required"`
	ProjectID string      `json:"projectId" validate:"required"`
}
