package model

import "strings"

// Category 是办事流程的分类（封闭枚举）。
type Category string

const (
	CategoryIdentityDocuments Category = "IDENTITY_DOCUMENTS"
	CategoryBirthCertificates Category = "BIRTH_CERTIFICATES"
	CategoryPassports         Category = "PASSPORTS"
	CategoryEducation         Category = "EDUCATION"
	CategoryBusiness          Category = "BUSINESS"
	CategoryProperty          Category = "PROPERTY"
	CategoryVehicle           Category = "VEHICLE"
	CategoryHealth            Category = "HEALTH"
	CategorySocialServices    Category = "SOCIAL_SERVICES"
	CategoryOther             Category = "OTHER"
)

// Categories 按展示顺序列出全部分类。
var Categories = []Category{
	CategoryIdentityDocuments,
	CategoryBirthCertificates,
	CategoryPassports,
	CategoryEducation,
	CategoryBusiness,
	CategoryProperty,
	CategoryVehicle,
	CategoryHealth,
	CategorySocialServices,
	CategoryOther,
}

// Valid 判断分类是否属于枚举。
func (c Category) Valid() bool {
	for _, v := range Categories {
		if v == c {
			return true
		}
	}
	return false
}

// Label 返回分类在指定语言下的显示名称，未知语言回退英文。
func (c Category) Label(lang Language) string {
	labels, ok := categoryLabels[c]
	if !ok {
		return string(c)
	}
	if l, ok := labels[lang]; ok {
		return l
	}
	return labels[LanguageEN]
}

var categoryLabels = map[Category]map[Language]string{
	CategoryIdentityDocuments: {LanguageEN: "Identity Documents", LanguageSI: "හැඳුනුම්පත් ලේඛන", LanguageTA: "அடையாள ஆவணங்கள்"},
	CategoryBirthCertificates: {LanguageEN: "Birth Certificates", LanguageSI: "උප්පැන්න සහතික", LanguageTA: "பிறப்பு சான்றிதழ்கள்"},
	CategoryPassports:         {LanguageEN: "Passports", LanguageSI: "විදේශගත පත්‍ර", LanguageTA: "கடவுச்சீட்டுகள்"},
	CategoryEducation:         {LanguageEN: "Education", LanguageSI: "අධ්‍යාපනය", LanguageTA: "கல்வி"},
	CategoryBusiness:          {LanguageEN: "Business", LanguageSI: "ව්‍යාපාර", LanguageTA: "வணிகம்"},
	CategoryProperty:          {LanguageEN: "Property", LanguageSI: "දේපළ", LanguageTA: "சொத்து"},
	CategoryVehicle:           {LanguageEN: "Vehicle", LanguageSI: "වාහන", LanguageTA: "வாகனம்"},
	CategoryHealth:            {LanguageEN: "Health", LanguageSI: "සෞඛ්‍ය", LanguageTA: "சுகாதாரம்"},
	CategorySocialServices:    {LanguageEN: "Social Services", LanguageSI: "සමාජ සේවා", LanguageTA: "சமூக சேவைகள்"},
	CategoryOther:             {LanguageEN: "Other", LanguageSI: "වෙනත්", LanguageTA: "மற்றவை"},
}

// ProcedureStatus 是流程的发布状态，只有 ACTIVE 参与检索。
type ProcedureStatus string

const (
	StatusActive      ProcedureStatus = "ACTIVE"
	StatusDeprecated  ProcedureStatus = "DEPRECATED"
	StatusDraft       ProcedureStatus = "DRAFT"
	StatusUnderReview ProcedureStatus = "UNDER_REVIEW"
)

// Valid 判断状态是否合法。
func (s ProcedureStatus) Valid() bool {
	switch s {
	case StatusActive, StatusDeprecated, StatusDraft, StatusUnderReview:
		return true
	}
	return false
}

// Difficulty 表示办理难度。
type Difficulty string

const (
	DifficultyEasy   Difficulty = "EASY"
	DifficultyMedium Difficulty = "MEDIUM"
	DifficultyHard   Difficulty = "HARD"
)

// Language 是支持的三种语言。
type Language string

const (
	LanguageEN Language = "EN"
	LanguageSI Language = "SI"
	LanguageTA Language = "TA"
)

// ParseLanguage 不区分大小写地解析语言代码，空字符串返回 ok=false。
func ParseLanguage(s string) (Language, bool) {
	switch Language(strings.ToUpper(strings.TrimSpace(s))) {
	case LanguageEN:
		return LanguageEN, true
	case LanguageSI:
		return LanguageSI, true
	case LanguageTA:
		return LanguageTA, true
	}
	return "", false
}

// Role 是用户角色。
type Role string

const (
	RoleCitizen        Role = "CITIZEN"
	RoleAdmin          Role = "ADMIN"
	RoleContentManager Role = "CONTENT_MANAGER"
	RoleSuperAdmin     Role = "SUPER_ADMIN"
)

// Valid 判断角色是否合法。
func (r Role) Valid() bool {
	switch r {
	case RoleCitizen, RoleAdmin, RoleContentManager, RoleSuperAdmin:
		return true
	}
	return false
}

// IsAdmin 管理后台只对 ADMIN 和 SUPER_ADMIN 开放。
func (r Role) IsAdmin() bool {
	return r == RoleAdmin || r == RoleSuperAdmin
}

// CanManageContent 允许维护流程目录的角色。
func (r Role) CanManageContent() bool {
	return r.IsAdmin() || r == RoleContentManager
}
