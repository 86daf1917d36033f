package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"matesl-go/internal/model"
	"matesl-go/internal/repository"
	"matesl-go/pkg/log"

	"gorm.io/gorm"
)

// 目录服务的错误
var (
	ErrProcedureNotFound = errors.New("procedure not found")
	ErrSlugTaken         = errors.New("slug already exists")
	ErrInvalidProcedure  = errors.New("invalid procedure")
)

const (
	popularLimit = 10
	relatedLimit = 5
)

// CategoryInfo 是分类及其本地化名称和 ACTIVE 流程数。
type CategoryInfo struct {
	Category model.Category `json:"category"`
	Label    string         `json:"label"`
	LabelSi  string         `json:"labelSi"`
	LabelTa  string         `json:"labelTa"`
	Count    int64          `json:"count"`
}

// ProcedureInput 是管理员创建流程的输入。
type ProcedureInput struct {
	Title             string                `json:"title" binding:"required"`
	TitleSi           string                `json:"titleSi"`
	TitleTa           string                `json:"titleTa"`
	Description       string                `json:"description"`
	Category          model.Category        `json:"category" binding:"required"`
	Status            model.ProcedureStatus `json:"status"`
	Difficulty        model.Difficulty      `json:"difficulty"`
	EstimatedDuration string                `json:"estimatedDuration"`
	Slug              string                `json:"slug"`
	Keywords          []string              `json:"keywords"`
	SearchTags        []string              `json:"searchTags"`
	Steps             []model.ProcedureStep `json:"steps"`
	Requirements      []model.Requirement   `json:"requirements"`
	Fees              []model.Fee           `json:"fees"`
}

// ProcedureService 定义了流程目录的读取与维护操作。
type ProcedureService interface {
	GetByID(ctx context.Context, id string) (*model.Procedure, error)
	GetBySlug(ctx context.Context, slug string) (*model.Procedure, error)
	List(ctx context.Context, opts repository.ListOptions) ([]model.Procedure, int64, error)
	Categories(ctx context.Context) ([]CategoryInfo, error)
	Popular(ctx context.Context) ([]model.Procedure, error)
	Related(ctx context.Context, id string) ([]model.Procedure, error)
	Offices(ctx context.Context, id string) ([]model.ProcedureOffice, error)

	Create(ctx context.Context, in ProcedureInput) (*model.Procedure, error)
	Update(ctx context.Context, id string, changes repository.ProcedureChanges) (*model.Procedure, error)
	UpdateStatus(ctx context.Context, id string, status model.ProcedureStatus) (*model.Procedure, error)
	// Reindex 把全部流程写入检索索引，返回写入数量。
	Reindex(ctx context.Context) (int, error)
}

type procedureService struct {
	repo  repository.ProcedureRepository
	index repository.ProcedureIndex // 为 nil 时不维护索引
}

// NewProcedureService 创建一个新的 ProcedureService 实例。
func NewProcedureService(repo repository.ProcedureRepository, index repository.ProcedureIndex) ProcedureService {
	return &procedureService{repo: repo, index: index}
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrProcedureNotFound
	}
	return err
}

func (s *procedureService) GetByID(ctx context.Context, id string) (*model.Procedure, error) {
	p, err := s.repo.FindByID(ctx, id)
	return p, notFound(err)
}

func (s *procedureService) GetBySlug(ctx context.Context, slug string) (*model.Procedure, error) {
	p, err := s.repo.FindBySlug(ctx, slug)
	return p, notFound(err)
}

func (s *procedureService) List(ctx context.Context, opts repository.ListOptions) ([]model.Procedure, int64, error) {
	return s.repo.List(ctx, opts)
}

// Categories 返回全部分类，没有流程的分类计数为 0。
func (s *procedureService) Categories(ctx context.Context) ([]CategoryInfo, error) {
	counts, err := s.repo.CountByCategory(ctx)
	if err != nil {
		return nil, err
	}
	byCategory := make(map[model.Category]int64, len(counts))
	for _, c := range counts {
		byCategory[c.Category] = c.Count
	}
	infos := make([]CategoryInfo, 0, len(model.Categories))
	for _, c := range model.Categories {
		infos = append(infos, CategoryInfo{
			Category: c,
			Label:    c.Label(model.LanguageEN),
			LabelSi:  c.Label(model.LanguageSI),
			LabelTa:  c.Label(model.LanguageTA),
			Count:    byCategory[c],
		})
	}
	return infos, nil
}

func (s *procedureService) Popular(ctx context.Context) ([]model.Procedure, error) {
	return s.repo.MostReferenced(ctx, popularLimit)
}

func (s *procedureService) Related(ctx context.Context, id string) ([]model.Procedure, error) {
	p, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, notFound(err)
	}
	return s.repo.Related(ctx, p, relatedLimit)
}

func (s *procedureService) Offices(ctx context.Context, id string) ([]model.ProcedureOffice, error) {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		return nil, notFound(err)
	}
	return s.repo.Offices(ctx, id)
}

var slugInvalid = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify 由标题生成 slug，例如 "Apply for Sri Lankan Passport" -> "apply-for-sri-lankan-passport"。
func Slugify(title string) string {
	return strings.Trim(slugInvalid.ReplaceAllString(strings.ToLower(title), "-"), "-")
}

// Create 校验并创建流程，随后同步到检索索引。
func (s *procedureService) Create(ctx context.Context, in ProcedureInput) (*model.Procedure, error) {
	if strings.TrimSpace(in.Title) == "" {
		return nil, fmt.Errorf("%w: title is required", ErrInvalidProcedure)
	}
	if !in.Category.Valid() {
		return nil, fmt.Errorf("%w: unknown category %q", ErrInvalidProcedure, in.Category)
	}
	status := in.Status
	if status == "" {
		status = model.StatusDraft
	}
	if !status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidProcedure, status)
	}
	difficulty := in.Difficulty
	if difficulty == "" {
		difficulty = model.DifficultyMedium
	}
	slug := in.Slug
	if slug == "" {
		slug = Slugify(in.Title)
	}
	if slug == "" {
		return nil, fmt.Errorf("%w: slug is empty", ErrInvalidProcedure)
	}

	p := &model.Procedure{
		Title:             strings.TrimSpace(in.Title),
		TitleSi:           in.TitleSi,
		TitleTa:           in.TitleTa,
		Description:       in.Description,
		Category:          in.Category,
		Status:            status,
		Difficulty:        difficulty,
		EstimatedDuration: in.EstimatedDuration,
		Version:           1,
		Slug:              slug,
		Keywords:          in.Keywords,
		SearchTags:        in.SearchTags,
		Steps:             in.Steps,
		Requirements:      in.Requirements,
		Fees:              in.Fees,
	}
	for i := range p.Steps {
		if p.Steps[i].Order == 0 {
			p.Steps[i].Order = i + 1
		}
	}
	for i := range p.Requirements {
		if p.Requirements[i].Order == 0 {
			p.Requirements[i].Order = i + 1
		}
	}

	if err := s.repo.Create(ctx, p); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrSlugTaken
		}
		log.Errorf("[ProcedureService] 创建流程失败, slug: %s, error: %v", slug, err)
		return nil, err
	}
	log.Infof("[ProcedureService] 创建流程成功, id: %s, slug: %s", p.ID, p.Slug)
	return s.reload(ctx, p.ID)
}

// Update 修改流程，slug 不可修改。
func (s *procedureService) Update(ctx context.Context, id string, changes repository.ProcedureChanges) (*model.Procedure, error) {
	if changes.Category != nil && !changes.Category.Valid() {
		return nil, fmt.Errorf("%w: unknown category %q", ErrInvalidProcedure, *changes.Category)
	}
	if changes.Title != nil && strings.TrimSpace(*changes.Title) == "" {
		return nil, fmt.Errorf("%w: title is required", ErrInvalidProcedure)
	}
	if err := s.repo.Update(ctx, id, changes); err != nil {
		return nil, notFound(err)
	}
	return s.reload(ctx, id)
}

func (s *procedureService) UpdateStatus(ctx context.Context, id string, status model.ProcedureStatus) (*model.Procedure, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidProcedure, status)
	}
	if err := s.repo.UpdateStatus(ctx, id, status); err != nil {
		return nil, notFound(err)
	}
	return s.reload(ctx, id)
}

// reload 读取最新版本并同步索引；索引失败只记录日志。
func (s *procedureService) reload(ctx context.Context, id string) (*model.Procedure, error) {
	p, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, notFound(err)
	}
	if s.index != nil {
		if err := s.index.Index(ctx, p); err != nil {
			log.Errorf("[ProcedureService] 同步检索索引失败, id: %s, error: %v", id, err)
		}
	}
	return p, nil
}

func (s *procedureService) Reindex(ctx context.Context) (int, error) {
	if s.index == nil {
		return 0, errors.New("search index is not configured")
	}
	all, err := s.repo.All(ctx)
	if err != nil {
		return 0, err
	}
	for i := range all {
		if err := s.index.Index(ctx, &all[i]); err != nil {
			return i, fmt.Errorf("index procedure %s: %w", all[i].ID, err)
		}
	}
	log.Infof("[ProcedureService] 重建索引完成, 共 %d 条", len(all))
	return len(all), nil
}
