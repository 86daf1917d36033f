package provider

import (
	"fmt"
	"strings"

	"matesl-go/internal/model"
)

// 意图标签
const (
	IntentProcedureInquiry    = "procedure_inquiry"
	IntentDocumentRequirement = "document_requirement"
	IntentFeeInquiry          = "fee_inquiry"
	IntentOfficeLocation      = "office_location"
	IntentStatusCheck         = "status_check"
	IntentGeneralHelp         = "general_help"
	IntentGreeting            = "greeting"
	IntentUnclear             = "unclear"
)

// intentCandidates 是零样本分类的候选标签，分类结果把第一个空格换成下划线得到意图。
var intentCandidates = []string{
	"procedure inquiry",
	"document requirement",
	"fee inquiry",
	"office location",
	"status check",
	"general help",
	"greeting",
}

// intentEnum 是 OpenAI 工具调用中允许的意图。
var intentEnum = []string{
	IntentProcedureInquiry,
	IntentDocumentRequirement,
	IntentFeeInquiry,
	IntentOfficeLocation,
	IntentStatusCheck,
	IntentGeneralHelp,
	IntentGreeting,
	IntentUnclear,
}

func intentFromLabel(label string) string {
	return strings.Replace(label, " ", "_", 1)
}

type categoryRule struct {
	category model.Category
	terms    []string
}

// categoryRules 按顺序匹配，第一个包含任一关键词的分类胜出。
var categoryRules = []categoryRule{
	{model.CategoryIdentityDocuments, []string{"nic", "national identity", "id card", "identity card"}},
	{model.CategoryPassports, []string{"passport", "travel document", "visa"}},
	{model.CategoryBirthCertificates, []string{"birth certificate", "birth cert", "born"}},
	{model.CategoryEducation, []string{"degree", "certificate", "school", "university", "education"}},
	{model.CategoryBusiness, []string{"business", "company", "registration", "license"}},
	{model.CategoryVehicle, []string{"vehicle", "car", "license", "driving"}},
	{model.CategoryProperty, []string{"property", "land", "deed", "ownership"}},
}

// categorize 根据关键词子串给消息归类，未命中返回 OTHER。
func categorize(message string) model.Category {
	lower := strings.ToLower(message)
	for _, rule := range categoryRules {
		for _, term := range rule.terms {
			if strings.Contains(lower, term) {
				return rule.category
			}
		}
	}
	return model.CategoryOther
}

var hfGenericHelp = map[model.Language]string{
	model.LanguageEN: "I can help you with government procedures. Please specify what you need help with.",
	model.LanguageSI: "මට රජයේ ක්‍රියාවලි සම්බන්ධයෙන් ඔබට උදව් කළ හැකිය. කරුණාකර ඔබට කුමක් සඳහා උදව් අවශ්‍ය දැයි සඳහන් කරන්න.",
	model.LanguageTA: "அரசாங்க நடைமுறைகளில் என்னால் உங்களுக்கு உதவ முடியும். உங்களுக்கு என்ன உதவி தேவை என்பதைக் குறிப்பிடுங்கள்.",
}

var openAIGenericHelp = map[model.Language]string{
	model.LanguageEN: "I can help you with Sri Lankan government procedures. What do you need assistance with?",
	model.LanguageSI: "මම ශ්‍රී ලංකාවේ රාජ්‍ය ක්‍රියාවලි සම්බන්ධයෙන් ඔබට උදව් කළ හැකියි. ඔබට කුමක් සඳහා සහාය අවශ්‍යද?",
	model.LanguageTA: "இலங்கை அரசாங்க நடைமுறைகளில் நான் உங்களுக்கு உதவ முடியும். உங்களுக்கு என்ன உதவி தேவை?",
}

func localized(messages map[model.Language]string, lang model.Language) string {
	if msg, ok := messages[lang]; ok {
		return msg
	}
	return messages[model.LanguageEN]
}

// templateAnswer 是文本生成不可用时基于首个步骤的模板回答。
func templateAnswer(p *model.Procedure, lang model.Language) string {
	step := firstStep(p)
	switch lang {
	case model.LanguageSI:
		instruction := "අදාළ කාර්යාලයට යන්න"
		if step != nil && step.InstructionSi != "" {
			instruction = step.InstructionSi
		}
		return fmt.Sprintf("%s සඳහා, ඔබට: %s අවශ්‍යයි", p.LocalizedTitle(lang), instruction)
	case model.LanguageTA:
		instruction := "சம்பந்தப்பட்ட அலுவலகத்திற்கு செல்ல"
		if step != nil && step.InstructionTa != "" {
			instruction = step.InstructionTa
		}
		return fmt.Sprintf("%s க்கு, நீங்கள்: %s வேண்டும்", p.LocalizedTitle(lang), instruction)
	default:
		instruction := "visit the relevant office"
		if step != nil && step.Instruction != "" {
			instruction = step.Instruction
		}
		return fmt.Sprintf("For %s, you need to: %s", p.Title, instruction)
	}
}

// stepsAnswer 列出前三个步骤和第一项费用。
func stepsAnswer(p *model.Procedure, lang model.Language) string {
	var b strings.Builder
	fmt.Fprintf(&b, "To %s:\n\n", strings.ToLower(p.Title))
	for i, step := range p.Steps {
		if i == 3 {
			break
		}
		fmt.Fprintf(&b, "%d. %s\n", i+1, step.LocalizedInstruction(lang))
	}
	if len(p.Fees) > 0 {
		fmt.Fprintf(&b, "\nFees: LKR %s", formatAmount(p.Fees[0].Amount))
	}
	return b.String()
}

// formatAmount 整数金额不带小数位，例如 100 而不是 100.00。
func formatAmount(amount float64) string {
	return strings.TrimSuffix(strings.TrimRight(fmt.Sprintf("%.2f", amount), "0"), ".")
}
