package repository

import (
	"context"
	"strings"

	"matesl-go/internal/model"

	"gorm.io/gorm"
)

// ProcedureFilter 是一次目录检索的已规范化参数。
// Query 为小写后的原始查询；Tokens 为分词结果；Stems 为对应词干。
type ProcedureFilter struct {
	Query    string
	Tokens   []string
	Stems    []string
	Category model.Category
	Language model.Language
	Limit    int
	Offset   int
}

// ListOptions 控制目录列表查询。
type ListOptions struct {
	Category model.Category
	Status   model.ProcedureStatus
	Search   string
	OrderBy  string // 默认 title ASC
	Limit    int
	Offset   int
}

// ProcedureChanges 描述管理员对流程的修改；slug 不在其中，创建后不可改。
type ProcedureChanges struct {
	Title             *string
	TitleSi           *string
	TitleTa           *string
	Description       *string
	Category          *model.Category
	Difficulty        *model.Difficulty
	EstimatedDuration *string
	Keywords          []string
	SearchTags        []string
	ReplaceTerms      bool
}

// CategoryCount 是分类下 ACTIVE 流程的数量。
type CategoryCount struct {
	Category model.Category `json:"category"`
	Count    int64          `json:"count"`
}

// ProcedureRepository 定义了流程目录的持久化操作。
type ProcedureRepository interface {
	Search(ctx context.Context, f ProcedureFilter) ([]model.Procedure, int64, error)
	Suggest(ctx context.Context, query string, limit int) ([]string, error)
	FindByID(ctx context.Context, id string) (*model.Procedure, error)
	FindBySlug(ctx context.Context, slug string) (*model.Procedure, error)
	FindByIDs(ctx context.Context, ids []string) ([]model.Procedure, error)
	List(ctx context.Context, opts ListOptions) ([]model.Procedure, int64, error)
	All(ctx context.Context) ([]model.Procedure, error)
	CountByCategory(ctx context.Context) ([]CategoryCount, error)
	MostReferenced(ctx context.Context, limit int) ([]model.Procedure, error)
	Related(ctx context.Context, p *model.Procedure, limit int) ([]model.Procedure, error)
	Offices(ctx context.Context, procedureID string) ([]model.ProcedureOffice, error)
	Create(ctx context.Context, p *model.Procedure) error
	Update(ctx context.Context, id string, changes ProcedureChanges) error
	UpdateStatus(ctx context.Context, id string, status model.ProcedureStatus) error
	Counts(ctx context.Context) (total, active int64, err error)
}

type procedureRepository struct {
	db *gorm.DB
}

// NewProcedureRepository 创建一个新的 ProcedureRepository 实例。
func NewProcedureRepository(db *gorm.DB) ProcedureRepository {
	return &procedureRepository{db: db}
}

func orderedSteps(db *gorm.DB) *gorm.DB {
	return db.Order("step_order ASC")
}

func orderedRequirements(db *gorm.DB) *gorm.DB {
	return db.Order("req_order ASC")
}

// withSummary 预加载列表展示所需的关联。
func withSummary(db *gorm.DB) *gorm.DB {
	return db.Preload("Terms").Preload("Steps", orderedSteps).Preload("Fees")
}

// withDetail 预加载详情页所需的全部关联，主办理点排在前面。
func withDetail(db *gorm.DB) *gorm.DB {
	return withSummary(db).
		Preload("Requirements", orderedRequirements).
		Preload("Offices", func(db *gorm.DB) *gorm.DB { return db.Order("is_main DESC") }).
		Preload("Offices.Office")
}

// escapeLike 转义 LIKE 通配符，配合 ESCAPE '\' 使用。
func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

func containsPattern(s string) string {
	return "%" + escapeLike(s) + "%"
}

// matchCondition 构造检索谓词：标题包含查询串，或标签词干有交集，或关键词原词有交集。
func (r *procedureRepository) matchCondition(ctx context.Context, f ProcedureFilter) *gorm.DB {
	db := r.db.WithContext(ctx)
	pattern := containsPattern(f.Query)
	cond := db.Where(`LOWER(title) LIKE ? ESCAPE '\'`, pattern)

	switch f.Language {
	case model.LanguageSI:
		cond = cond.Or(`title_si LIKE ? ESCAPE '\'`, pattern)
	case model.LanguageTA:
		cond = cond.Or(`title_ta LIKE ? ESCAPE '\'`, pattern)
	}

	if len(f.Stems) > 0 {
		tagHits := db.Model(&model.ProcedureTerm{}).Select("procedure_id").
			Where("kind = ? AND stem IN ?", model.TermTag, f.Stems)
		cond = cond.Or("id IN (?)", tagHits)
	}
	if len(f.Tokens) > 0 {
		keywordHits := db.Model(&model.ProcedureTerm{}).Select("procedure_id").
			Where("kind = ? AND term IN ?", model.TermKeyword, f.Tokens)
		cond = cond.Or("id IN (?)", keywordHits)
	}
	return cond
}

// Search 返回满足谓词的 ACTIVE 流程，按创建时间倒序，不做相关度排序。
func (r *procedureRepository) Search(ctx context.Context, f ProcedureFilter) ([]model.Procedure, int64, error) {
	base := func() *gorm.DB {
		db := r.db.WithContext(ctx).Model(&model.Procedure{}).
			Where("status = ?", model.StatusActive).
			Where(r.matchCondition(ctx, f))
		if f.Category != "" {
			db = db.Where("category = ?", f.Category)
		}
		return db
	}

	var total int64
	if err := base().Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var procedures []model.Procedure
	err := withSummary(base()).
		Order("created_at DESC").
		Offset(f.Offset).
		Limit(f.Limit).
		Find(&procedures).Error
	if err != nil {
		return nil, 0, err
	}
	return procedures, total, nil
}

// Suggest 返回包含查询串的关键词或标签（去重，排除查询本身）。
func (r *procedureRepository) Suggest(ctx context.Context, query string, limit int) ([]string, error) {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" || limit <= 0 {
		return []string{}, nil
	}

	var terms []string
	err := r.db.WithContext(ctx).Model(&model.ProcedureTerm{}).
		Joins("JOIN procedures ON procedures.id = procedure_terms.procedure_id").
		Where("procedures.status = ?", model.StatusActive).
		Where(`procedure_terms.term LIKE ? ESCAPE '\'`, containsPattern(q)).
		Where("procedure_terms.term <> ?", q).
		Distinct().
		Order("procedure_terms.term ASC").
		Limit(limit).
		Pluck("procedure_terms.term", &terms).Error
	if err != nil {
		return nil, err
	}
	return terms, nil
}

// FindByID 根据 ID 查找流程详情。
func (r *procedureRepository) FindByID(ctx context.Context, id string) (*model.Procedure, error) {
	var p model.Procedure
	if err := withDetail(r.db.WithContext(ctx)).Where("id = ?", id).First(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

// FindBySlug 根据 slug 查找流程详情。
func (r *procedureRepository) FindBySlug(ctx context.Context, slug string) (*model.Procedure, error) {
	var p model.Procedure
	if err := withDetail(r.db.WithContext(ctx)).Where("slug = ?", slug).First(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

// FindByIDs 批量查找流程，结果按 ids 的顺序返回，找不到的 ID 被跳过。
func (r *procedureRepository) FindByIDs(ctx context.Context, ids []string) ([]model.Procedure, error) {
	if len(ids) == 0 {
		return []model.Procedure{}, nil
	}
	var found []model.Procedure
	if err := withSummary(r.db.WithContext(ctx)).Where("id IN ?", ids).Find(&found).Error; err != nil {
		return nil, err
	}
	byID := make(map[string]model.Procedure, len(found))
	for _, p := range found {
		byID[p.ID] = p
	}
	ordered := make([]model.Procedure, 0, len(found))
	for _, id := range ids {
		if p, ok := byID[id]; ok {
			ordered = append(ordered, p)
		}
	}
	return ordered, nil
}

// List 分页列出流程，默认按标题升序。
func (r *procedureRepository) List(ctx context.Context, opts ListOptions) ([]model.Procedure, int64, error) {
	base := func() *gorm.DB {
		db := r.db.WithContext(ctx).Model(&model.Procedure{})
		if opts.Status != "" {
			db = db.Where("status = ?", opts.Status)
		}
		if opts.Category != "" {
			db = db.Where("category = ?", opts.Category)
		}
		if opts.Search != "" {
			db = db.Where(`LOWER(title) LIKE ? ESCAPE '\'`, containsPattern(strings.ToLower(opts.Search)))
		}
		return db
	}

	var total int64
	if err := base().Count(&total).Error; err != nil {
		return nil, 0, err
	}

	orderBy := opts.OrderBy
	if orderBy == "" {
		orderBy = "title ASC"
	}
	var procedures []model.Procedure
	err := withSummary(base()).Order(orderBy).Offset(opts.Offset).Limit(opts.Limit).Find(&procedures).Error
	if err != nil {
		return nil, 0, err
	}
	return procedures, total, nil
}

// All 返回全部流程，供重建索引使用。
func (r *procedureRepository) All(ctx context.Context) ([]model.Procedure, error) {
	var procedures []model.Procedure
	err := r.db.WithContext(ctx).Preload("Terms").Order("created_at ASC").Find(&procedures).Error
	return procedures, err
}

// CountByCategory 统计每个分类下的 ACTIVE 流程数。
func (r *procedureRepository) CountByCategory(ctx context.Context) ([]CategoryCount, error) {
	var rows []CategoryCount
	err := r.db.WithContext(ctx).Model(&model.Procedure{}).
		Select("category, COUNT(*) AS count").
		Where("status = ?", model.StatusActive).
		Group("category").
		Order("category ASC").
		Scan(&rows).Error
	return rows, err
}

// MostReferenced 按被聊天回答引用的次数返回热门 ACTIVE 流程，不足时用最新流程补齐。
func (r *procedureRepository) MostReferenced(ctx context.Context, limit int) ([]model.Procedure, error) {
	var ids []string
	err := r.db.WithContext(ctx).Model(&model.ChatMessage{}).
		Joins("JOIN procedures ON procedures.id = chat_messages.procedure_id").
		Where("procedures.status = ?", model.StatusActive).
		Group("chat_messages.procedure_id").
		Order("COUNT(*) DESC").
		Limit(limit).
		Pluck("chat_messages.procedure_id", &ids).Error
	if err != nil {
		return nil, err
	}

	popular, err := r.FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	if len(popular) >= limit {
		return popular, nil
	}

	var filler []model.Procedure
	q := withSummary(r.db.WithContext(ctx)).Where("status = ?", model.StatusActive)
	if len(ids) > 0 {
		q = q.Where("id NOT IN ?", ids)
	}
	if err := q.Order("created_at DESC").Limit(limit - len(popular)).Find(&filler).Error; err != nil {
		return nil, err
	}
	return append(popular, filler...), nil
}

// Related 返回同分类的其他 ACTIVE 流程。
func (r *procedureRepository) Related(ctx context.Context, p *model.Procedure, limit int) ([]model.Procedure, error) {
	var related []model.Procedure
	err := withSummary(r.db.WithContext(ctx)).
		Where("status = ? AND category = ? AND id <> ?", model.StatusActive, p.Category, p.ID).
		Order("created_at DESC").
		Limit(limit).
		Find(&related).Error
	return related, err
}

// Offices 返回流程关联的办公室，主办理点在前。
func (r *procedureRepository) Offices(ctx context.Context, procedureID string) ([]model.ProcedureOffice, error) {
	var links []model.ProcedureOffice
	err := r.db.WithContext(ctx).Preload("Office").
		Where("procedure_id = ?", procedureID).
		Order("is_main DESC").
		Find(&links).Error
	return links, err
}

// Create 创建流程及其全部关联；slug 冲突时返回 gorm.ErrDuplicatedKey。
func (r *procedureRepository) Create(ctx context.Context, p *model.Procedure) error {
	return r.db.WithContext(ctx).Create(p).Error
}

// Update 修改流程的可变字段并递增版本号。
func (r *procedureRepository) Update(ctx context.Context, id string, changes ProcedureChanges) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		updates := map[string]interface{}{"version": gorm.Expr("version + 1")}
		if changes.Title != nil {
			updates["title"] = *changes.Title
		}
		if changes.TitleSi != nil {
			updates["title_si"] = *changes.TitleSi
		}
		if changes.TitleTa != nil {
			updates["title_ta"] = *changes.TitleTa
		}
		if changes.Description != nil {
			updates["description"] = *changes.Description
		}
		if changes.Category != nil {
			updates["category"] = *changes.Category
		}
		if changes.Difficulty != nil {
			updates["difficulty"] = *changes.Difficulty
		}
		if changes.EstimatedDuration != nil {
			updates["estimated_duration"] = *changes.EstimatedDuration
		}

		res := tx.Model(&model.Procedure{}).Where("id = ?", id).Updates(updates)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}

		if !changes.ReplaceTerms {
			return nil
		}
		if err := tx.Where("procedure_id = ?", id).Delete(&model.ProcedureTerm{}).Error; err != nil {
			return err
		}
		terms := model.NewProcedureTerms(changes.Keywords, changes.SearchTags)
		if len(terms) == 0 {
			return nil
		}
		for i := range terms {
			terms[i].ProcedureID = id
		}
		return tx.Create(&terms).Error
	})
}

// UpdateStatus 修改发布状态。
func (r *procedureRepository) UpdateStatus(ctx context.Context, id string, status model.ProcedureStatus) error {
	res := r.db.WithContext(ctx).Model(&model.Procedure{}).Where("id = ?", id).Update("status", status)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// Counts 返回流程总数与 ACTIVE 数。
func (r *procedureRepository) Counts(ctx context.Context) (total, active int64, err error) {
	db := r.db.WithContext(ctx).Model(&model.Procedure{})
	if err = db.Count(&total).Error; err != nil {
		return 0, 0, err
	}
	err = r.db.WithContext(ctx).Model(&model.Procedure{}).Where("status = ?", model.StatusActive).Count(&active).Error
	return total, active, err
}
