// Package model 包含了应用的数据模型定义。
package model

import (
	"strings"
	"time"

	"matesl-go/pkg/nlp"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Procedure 代表一项政府办事流程。
type Procedure struct {
	ID                string            `gorm:"type:varchar(36);primaryKey" json:"id"`
	Title             string            `gorm:"type:varchar(255);not null" json:"title"`
	TitleSi           string            `gorm:"type:varchar(255)" json:"titleSi"`
	TitleTa           string            `gorm:"type:varchar(255)" json:"titleTa"`
	Description       string            `gorm:"type:text" json:"description,omitempty"`
	Category          Category          `gorm:"type:varchar(32);index;not null" json:"category"`
	Status            ProcedureStatus   `gorm:"type:varchar(16);index;not null" json:"status"`
	Difficulty        Difficulty        `gorm:"type:varchar(8)" json:"difficulty"`
	EstimatedDuration string            `gorm:"type:varchar(64)" json:"estimatedDuration,omitempty"`
	Version           int               `gorm:"not null;default:1" json:"version"`
	Slug              string            `gorm:"type:varchar(191);uniqueIndex;not null" json:"slug"`
	Keywords          []string          `gorm:"-" json:"keywords"`
	SearchTags        []string          `gorm:"-" json:"searchTags"`
	Terms             []ProcedureTerm   `gorm:"foreignKey:ProcedureID;constraint:OnDelete:CASCADE" json:"-"`
	Steps             []ProcedureStep   `gorm:"foreignKey:ProcedureID;constraint:OnDelete:CASCADE" json:"steps,omitempty"`
	Requirements      []Requirement     `gorm:"foreignKey:ProcedureID;constraint:OnDelete:CASCADE" json:"requirements,omitempty"`
	Fees              []Fee             `gorm:"foreignKey:ProcedureID;constraint:OnDelete:CASCADE" json:"fees,omitempty"`
	Offices           []ProcedureOffice `gorm:"foreignKey:ProcedureID;constraint:OnDelete:CASCADE" json:"offices,omitempty"`
	CreatedAt         time.Time         `gorm:"index" json:"createdAt"`
	UpdatedAt         time.Time         `json:"updatedAt"`
}

// BeforeCreate 生成 UUID 主键，并根据 Keywords/SearchTags 生成检索词行。
func (p *Procedure) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if len(p.Terms) == 0 {
		p.Terms = NewProcedureTerms(p.Keywords, p.SearchTags)
	}
	return nil
}

// AfterFind 在预加载 Terms 后还原 Keywords/SearchTags。
func (p *Procedure) AfterFind(tx *gorm.DB) error {
	if len(p.Terms) == 0 {
		return nil
	}
	p.Keywords = p.Keywords[:0]
	p.SearchTags = p.SearchTags[:0]
	for _, t := range p.Terms {
		switch t.Kind {
		case TermKeyword:
			p.Keywords = append(p.Keywords, t.Term)
		case TermTag:
			p.SearchTags = append(p.SearchTags, t.Term)
		}
	}
	return nil
}

// LocalizedTitle 返回指定语言的标题，本地化标题为空时回退英文。
func (p *Procedure) LocalizedTitle(lang Language) string {
	switch lang {
	case LanguageSI:
		if p.TitleSi != "" {
			return p.TitleSi
		}
	case LanguageTA:
		if p.TitleTa != "" {
			return p.TitleTa
		}
	}
	return p.Title
}

// TermKind 区分关键词与检索标签。
type TermKind string

const (
	TermKeyword TermKind = "keyword"
	TermTag     TermKind = "tag"
)

// ProcedureTerm 以行的形式保存关键词集合与标签集合，便于用 IN 做集合求交。
// Term 为小写原文；Stem 为词干，仅标签匹配使用。
type ProcedureTerm struct {
	ID          uint     `gorm:"primaryKey" json:"-"`
	ProcedureID string   `gorm:"type:varchar(36);index;not null" json:"-"`
	Kind        TermKind `gorm:"type:varchar(8);index:idx_term_kind_stem,priority:1;index:idx_term_kind_term,priority:1;not null" json:"kind"`
	Term        string   `gorm:"type:varchar(128);index:idx_term_kind_term,priority:2;not null" json:"term"`
	Stem        string   `gorm:"type:varchar(128);index:idx_term_kind_stem,priority:2" json:"stem"`
}

// NewProcedureTerms 把关键词和标签规范化为检索词行，重复项只保留一次。
func NewProcedureTerms(keywords, tags []string) []ProcedureTerm {
	terms := make([]ProcedureTerm, 0, len(keywords)+len(tags))
	seen := make(map[string]struct{})
	add := func(kind TermKind, raw string) {
		term := strings.ToLower(strings.TrimSpace(raw))
		if term == "" {
			return
		}
		key := string(kind) + ":" + term
		if _, ok := seen[key]; ok {
			return
		}
		seen[key] = struct{}{}
		t := ProcedureTerm{Kind: kind, Term: term}
		if kind == TermTag {
			t.Stem = nlp.Stem(term)
		}
		terms = append(terms, t)
	}
	for _, k := range keywords {
		add(TermKeyword, k)
	}
	for _, t := range tags {
		add(TermTag, t)
	}
	return terms
}

// ProcedureStep 是流程中的一个步骤，总是按 Order 升序读取。
type ProcedureStep struct {
	ID            string   `gorm:"type:varchar(36);primaryKey" json:"id"`
	ProcedureID   string   `gorm:"type:varchar(36);index;not null" json:"procedureId"`
	Order         int      `gorm:"column:step_order;not null" json:"order"`
	Instruction   string   `gorm:"type:text;not null" json:"instruction"`
	InstructionSi string   `gorm:"type:text" json:"instructionSi"`
	InstructionTa string   `gorm:"type:text" json:"instructionTa"`
	EstimatedTime string   `gorm:"type:varchar(64)" json:"estimatedTime,omitempty"`
	Tips          []string `gorm:"type:text;serializer:json" json:"tips"`
	RequiredDocs  []string `gorm:"type:text;serializer:json" json:"requiredDocs"`
}

func (s *ProcedureStep) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	return nil
}

// LocalizedInstruction 返回指定语言的步骤说明。
func (s *ProcedureStep) LocalizedInstruction(lang Language) string {
	switch lang {
	case LanguageSI:
		if s.InstructionSi != "" {
			return s.InstructionSi
		}
	case LanguageTA:
		if s.InstructionTa != "" {
			return s.InstructionTa
		}
	}
	return s.Instruction
}

// Requirement 是办理所需材料，总是按 Order 升序读取。
type Requirement struct {
	ID          string `gorm:"type:varchar(36);primaryKey" json:"id"`
	ProcedureID string `gorm:"type:varchar(36);index;not null" json:"procedureId"`
	Order       int    `gorm:"column:req_order;not null" json:"order"`
	Name        string `gorm:"type:varchar(255);not null" json:"name"`
	NameSi      string `gorm:"type:varchar(255)" json:"nameSi"`
	NameTa      string `gorm:"type:varchar(255)" json:"nameTa"`
	Description string `gorm:"type:text" json:"description,omitempty"`
	IsRequired  bool   `json:"isRequired"`
}

func (r *Requirement) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	return nil
}

// Fee 是办理费用，金额单位由 Currency 指定（默认 LKR）。
type Fee struct {
	ID          string  `gorm:"type:varchar(36);primaryKey" json:"id"`
	ProcedureID string  `gorm:"type:varchar(36);index;not null" json:"procedureId"`
	Description string  `gorm:"type:varchar(255);not null" json:"description"`
	Amount      float64 `gorm:"not null" json:"amount"`
	Currency    string  `gorm:"type:varchar(8);not null;default:LKR" json:"currency"`
	IsOptional  bool    `json:"isOptional"`
}

func (f *Fee) BeforeCreate(tx *gorm.DB) error {
	if f.ID == "" {
		f.ID = uuid.NewString()
	}
	if f.Currency == "" {
		f.Currency = "LKR"
	}
	return nil
}

// Office 是受理流程的政府办公室。
type Office struct {
	ID             string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	Name           string    `gorm:"type:varchar(255);not null" json:"name"`
	NameSi         string    `gorm:"type:varchar(255)" json:"nameSi"`
	NameTa         string    `gorm:"type:varchar(255)" json:"nameTa"`
	Address        string    `gorm:"type:varchar(512)" json:"address"`
	District       string    `gorm:"type:varchar(64);index" json:"district"`
	Province       string    `gorm:"type:varchar(64)" json:"province"`
	ContactNumbers []string  `gorm:"type:text;serializer:json" json:"contactNumbers"`
	Email          string    `gorm:"type:varchar(255)" json:"email,omitempty"`
	Website        string    `gorm:"type:varchar(255)" json:"website,omitempty"`
	WorkingHours   string    `gorm:"type:varchar(128)" json:"workingHours"`
	Latitude       *float64  `json:"latitude,omitempty"`
	Longitude      *float64  `json:"longitude,omitempty"`
	IsActive       bool      `gorm:"not null;default:true" json:"isActive"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

func (o *Office) BeforeCreate(tx *gorm.DB) error {
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	return nil
}

// ProcedureOffice 关联流程与办公室，IsMain 标记主办理点。
type ProcedureOffice struct {
	ProcedureID string  `gorm:"type:varchar(36);primaryKey" json:"procedureId"`
	OfficeID    string  `gorm:"type:varchar(36);primaryKey" json:"officeId"`
	IsMain      bool    `json:"isMain"`
	Office      *Office `gorm:"foreignKey:OfficeID" json:"office,omitempty"`
}
