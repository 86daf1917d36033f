// Package seed 写入开发与演示用的初始数据。重复执行是安全的。
package seed

import (
	"context"
	"errors"
	"fmt"

	"matesl-go/internal/model"
	"matesl-go/internal/repository"
	"matesl-go/pkg/hash"
	"matesl-go/pkg/log"

	"gorm.io/gorm"
)

// Summary 是一次 Run 新写入的记录数。
type Summary struct {
	Users      int
	Offices    int
	Procedures int
}

type seedUser struct {
	email, name, password string
	role                  model.Role
}

var users = []seedUser{
	{"admin@gov.lk", "System Administrator", "admin123", model.RoleSuperAdmin},
	{"content@gov.lk", "Content Manager", "content123", model.RoleContentManager},
}

func coord(v float64) *float64 { return &v }

// 下标被 officeFor 引用，顺序不可调整。
var offices = []model.Office{
	{
		Name:           "Registrar General's Department",
		NameSi:         "ලේඛකාධිකාරී ජනරාල් දෙපාර්තමේන්තුව",
		NameTa:         "பதிவாளர் ஜெனரல் திணைக்களம்",
		Address:        "No. 7, Independence Avenue, Colombo 07",
		District:       "Colombo",
		Province:       "Western",
		ContactNumbers: []string{"+94112691185", "+94112688211"},
		Email:          "info@rgd.gov.lk",
		Website:        "http://www.rgd.gov.lk",
		WorkingHours:   "Monday to Friday: 8:30 AM - 4:15 PM",
		Latitude:       coord(6.9147),
		Longitude:      coord(79.8774),
		IsActive:       true,
	},
	{
		Name:           "Department of Immigration and Emigration",
		NameSi:         "ආගමන හා විගමන දෙපාර්තමේන්තුව",
		NameTa:         "குடியேற்ற மற்றும் குடியகற்றல் திணைக்களம்",
		Address:        "No. 41, Ananda Rajakaruna Mawatha, Colombo 10",
		District:       "Colombo",
		Province:       "Western",
		ContactNumbers: []string{"+94112329300", "+94112329400"},
		Email:          "info@immigration.gov.lk",
		Website:        "http://www.immigration.gov.lk",
		WorkingHours:   "Monday to Friday: 8:30 AM - 4:15 PM",
		Latitude:       coord(6.9355),
		Longitude:      coord(79.851),
		IsActive:       true,
	},
	{
		Name:           "Ministry of Public Services, Provincial Councils and Local Government",
		NameSi:         "රාජ්‍ය සේවා, පළාත් සභා සහ පළාත් පාලන අමාත්‍යංශය",
		NameTa:         "பொது சேவைகள், மாகாண சபைகள் மற்றும் உள்ளூர் அரசாங்க அமைச்சு",
		Address:        "Independence Square, Colombo 07",
		District:       "Colombo",
		Province:       "Western",
		ContactNumbers: []string{"+94112694031", "+94112694032"},
		Email:          "info@pubad.gov.lk",
		Website:        "http://www.pubad.gov.lk",
		WorkingHours:   "Monday to Friday: 8:30 AM - 4:15 PM",
		Latitude:       coord(6.9147),
		Longitude:      coord(79.8774),
		IsActive:       true,
	},
	{
		Name:           "District Secretariat - Kandy",
		NameSi:         "දිස්ත්‍රික් ලේකම් කාර්යාලය - මහනුවර",
		NameTa:         "மாவட்ட செயலகம் - கண்டி",
		Address:        "District Secretariat, Kandy",
		District:       "Kandy",
		Province:       "Central",
		ContactNumbers: []string{"+94812222771", "+94812222772"},
		Email:          "info@kandy.dist.gov.lk",
		Website:        "http://www.kandy.dist.gov.lk",
		WorkingHours:   "Monday to Friday: 8:30 AM - 4:15 PM",
		Latitude:       coord(7.2906),
		Longitude:      coord(80.6337),
		IsActive:       true,
	},
	{
		Name:           "Registrar of Companies",
		NameSi:         "සමාගම් ලේඛකාධිකාරී",
		NameTa:         "நிறுவனங்களின் பதிவாளர்",
		Address:        "No. 5, Baladaksha Mawatha, Colombo 03",
		District:       "Colombo",
		Province:       "Western",
		ContactNumbers: []string{"+94112136873", "+94112136874"},
		Email:          "info@roc.gov.lk",
		Website:        "http://www.roc.gov.lk",
		WorkingHours:   "Monday to Friday: 8:30 AM - 4:15 PM",
		Latitude:       coord(6.927),
		Longitude:      coord(79.8612),
		IsActive:       true,
	},
}

// officeFor 返回分类的主办理点在 offices 中的下标。
func officeFor(c model.Category) int {
	switch c {
	case model.CategoryPassports:
		return 1
	case model.CategoryBusiness:
		return 4
	default:
		return 0
	}
}

// Procedures 返回种子流程。每次调用都返回新的副本。
func Procedures() []model.Procedure {
	return []model.Procedure{
		{
			Title:             "Apply for New National Identity Card",
			TitleSi:           "නව ජාතික හැඳුනුම්පත සඳහා අයදුම් කිරීම",
			TitleTa:           "புதிய தேசிய அடையாள அட்டைக்கு விண்ணப்பிக்கவும்",
			Slug:              "apply-new-national-identity-card",
			Description:       "Complete guide to apply for a new National Identity Card for Sri Lankan citizens",
			Category:          model.CategoryIdentityDocuments,
			Status:            model.StatusActive,
			Keywords:          []string{"NIC", "national identity card", "ID card", "identity", "birth certificate"},
			SearchTags:        []string{"nic", "identity", "card", "national", "id"},
			EstimatedDuration: "7-14 days",
			Difficulty:        model.DifficultyEasy,
			Steps: []model.ProcedureStep{
				{
					Order:         1,
					Instruction:   "Visit the nearest Divisional Secretariat office with required documents",
					InstructionSi: "අවශ්‍ය ලියකියවිලි සමග ආසන්නතම ප්‍රාදේශීය ලේකම් කාර්යාලයට පිවිසෙන්න",
					InstructionTa: "தேவையான ஆவணங்களுடன் அருகிலுள்ள பிரதேச செயலர் அலுவலகத்திற்கு செல்லவும்",
					EstimatedTime: "30-45 minutes",
					RequiredDocs:  []string{"Birth Certificate", "Proof of Address", "Parent NIC copies"},
					Tips:          []string{"Visit early morning to avoid queues", "Bring photocopies of all documents", "Carry exact change for fees"},
				},
				{
					Order:         2,
					Instruction:   "Fill the application form (Form 1) completely and accurately",
					InstructionSi: "අයදුම්පත (ආකෘති පත්‍ර 1) සම්පූර්ණයෙන් සහ නිවැරදිව පුරවන්න",
					InstructionTa: "விண்ணப்ப படிவத்தை (படிவம் 1) முழுமையாக மற்றும் துல்லியமாக நிரப்பவும்",
					EstimatedTime: "15-20 minutes",
					Tips:          []string{"Use black ink pen only", "Write clearly and legibly", "Double-check all information"},
				},
				{
					Order:         3,
					Instruction:   "Submit application with documents and pay the required fee",
					InstructionSi: "ලියකියවිලි සමග අයදුම්පත ඉදිරිපත් කර අවශ්‍ය ගාස්තුව ගෙවන්න",
					InstructionTa: "ஆவணங்களுடன் விண்ணப்பத்தை சமர்ப்பித்து தேவையான கட்டணம் செலுத்தவும்",
					EstimatedTime: "15 minutes",
					Tips:          []string{"Get receipt for payment", "Note down reference number", "Ask for expected completion date"},
				},
				{
					Order:         4,
					Instruction:   "Collect your new NIC after the processing period",
					InstructionSi: "සැකසුම් කාලයෙන් පසු ඔබේ නව ජා.හැ.කා එකතු කරගන්න",
					EstimatedTime: "10 minutes",
					Tips:          []string{"Bring receipt and old ID if available", "Verify all details on new NIC"},
				},
			},
			Requirements: []model.Requirement{
				{Order: 1, Name: "Original Birth Certificate", NameSi: "මුල් උප්පැන්න සහතිකය", NameTa: "அசல் பிறப்பு சான்றிதழ்", Description: "Certified copy issued by Registrar General or authorized officer", IsRequired: true},
				{Order: 2, Name: "Proof of Current Address", NameSi: "වර්තමාන ලිපිනයේ සාක්ෂිය", NameTa: "தற்போதைய முகவரி ஆதாரம்", Description: "Utility bill, bank statement, or Grama Niladhari certificate within 3 months", IsRequired: true},
				{Order: 3, Name: "Parent/Guardian NIC Copies", NameSi: "මාපිය/භාරකරුගේ ජා.හැ.කා පිටපත්", NameTa: "பெற்றோர்/பாதுகாவலர் NIC நகல்கள்", Description: "Photocopies of both parents' NICs (if applicable)"},
				{Order: 4, Name: "Passport Size Photographs", NameSi: "ගමන් බලපත්‍ර ප්‍රමාණයේ ඡායාරූප", NameTa: "பாஸ்போர்ட் அளவு புகைப்படங்கள்", Description: "2 recent passport-size color photographs", IsRequired: true},
			},
			Fees: []model.Fee{
				{Description: "Application Processing Fee", Amount: 100, Currency: "LKR"},
			},
		},
		{
			Title:             "Apply for Sri Lankan Passport",
			TitleSi:           "ශ්‍රී ලංකන් ගමන් බලපත්‍රය සඳහා අයදුම් කිරීම",
			TitleTa:           "இலங்கை கடவுச்சீட்டிற்கு விண்ணப்பிக்கவும்",
			Slug:              "apply-sri-lankan-passport",
			Description:       "Complete guide to apply for a Sri Lankan passport for travel abroad",
			Category:          model.CategoryPassports,
			Status:            model.StatusActive,
			Keywords:          []string{"passport", "travel document", "visa", "travel", "immigration"},
			SearchTags:        []string{"passport", "travel", "document", "visa", "immigration"},
			EstimatedDuration: "3-45 days",
			Difficulty:        model.DifficultyMedium,
			Steps: []model.ProcedureStep{
				{
					Order:         1,
					Instruction:   "Submit online application via epassport.gov.lk",
					InstructionSi: "epassport.gov.lk හරහා මාර්ගගත අයදුම්පත ඉදිරිපත් කිරීම",
					InstructionTa: "epassport.gov.lk மூலம் ஆன்லைன் விண்ணப்பம் சமர்ப்பிக்கவும்",
					EstimatedTime: "20-30 minutes",
					Tips:          []string{"Have all documents scanned and ready", "Use good internet connection", "Create account first"},
				},
				{
					Order:         2,
					Instruction:   "Pay application fee online and print receipt",
					InstructionSi: "අයදුම් ගාස්තුව මාර්ගගතව ගෙවා රිසිට්පත මුද්‍රණය කරන්න",
					InstructionTa: "ஆன்லைனில் விண்ணப்ப கட்டணம் செலுத்தி ரசீதை அச்சிடவும்",
					EstimatedTime: "5-10 minutes",
					Tips:          []string{"Keep payment receipt safe", "Use secure payment methods", "Check bank charges"},
				},
				{
					Order:         3,
					Instruction:   "Visit passport office for biometric data collection",
					InstructionSi: "ජීවමිතික දත්ත එකතු කිරීම සඳහා ගමන් බලපත්‍ර කාර්යාලයට පිවිසෙන්න",
					InstructionTa: "உயிரியல் தரவு சேகரிப்பிற்காக கடவுச்சீட்டு அலுவலகத்திற்கு செல்லவும்",
					EstimatedTime: "45-60 minutes",
					RequiredDocs:  []string{"All original documents", "Online application print", "Payment receipt"},
					Tips:          []string{"Book appointment online", "Arrive 15 minutes early", "Dress formally"},
				},
				{
					Order:         4,
					Instruction:   "Collect passport after processing completion",
					InstructionSi: "සැකසුම් සම්පූර්ණ කිරීමෙන් පසු ගමන් බලපත්‍රය එකතු කරගන්න",
					InstructionTa: "செயலாக்கம் முடிந்ததும் கடவுச்சீட்டை சேகரிக்கவும்",
					EstimatedTime: "10-15 minutes",
					Tips:          []string{"Check SMS updates", "Verify all details", "Sign passport immediately"},
				},
			},
			Requirements: []model.Requirement{
				{Order: 1, Name: "National Identity Card", NameSi: "ජාතික හැඳුනුම්පත", NameTa: "தேசிய அடையாள அட்டை", Description: "Valid Sri Lankan NIC (original and certified photocopy)", IsRequired: true},
				{Order: 2, Name: "Birth Certificate", NameSi: "උප්පැන්න සහතිකය", NameTa: "பிறப்பு சான்றிதழ்", Description: "Original birth certificate issued by Registrar General", IsRequired: true},
				{Order: 3, Name: "Marriage Certificate", NameSi: "විවාහ සහතිකය", NameTa: "திருமண சான்றிதழ்", Description: "Required if married and name change is applicable"},
				{Order: 4, Name: "Previous Passport", NameSi: "පෙර ගමන් බලපත්‍රය", NameTa: "முந்தைய கடவுச்சீட்டு", Description: "If renewing existing passport"},
			},
			Fees: []model.Fee{
				{Description: "Normal Processing (45 days)", Amount: 3500, Currency: "LKR"},
				{Description: "Fast Track (7 days)", Amount: 7000, Currency: "LKR", IsOptional: true},
				{Description: "Express Service (3 days)", Amount: 10000, Currency: "LKR", IsOptional: true},
			},
		},
		{
			Title:             "Business Registration Certificate",
			TitleSi:           "ව්‍යාපාර ලියාපදිංචි සහතිකය",
			TitleTa:           "வணிக பதிவு சான்றிதழ்",
			Slug:              "business-registration-certificate",
			Description:       "Step-by-step guide to register a new business in Sri Lanka",
			Category:          model.CategoryBusiness,
			Status:            model.StatusActive,
			Keywords:          []string{"business registration", "company", "enterprise", "license", "trade"},
			SearchTags:        []string{"business", "registration", "company", "license", "trade"},
			EstimatedDuration: "3-7 days",
			Difficulty:        model.DifficultyMedium,
			Steps: []model.ProcedureStep{
				{
					Order:         1,
					Instruction:   "Reserve business name through ROC online system",
					InstructionSi: "ROC මාර්ගගත පද්ධතිය හරහා ව්‍යාපාරික නාමය රක්ෂිත කරන්න",
					InstructionTa: "ROC ஆன்லைன் அமைப்பு மூலம் வணிக பெயரை முன்பதிவு செய்யவும்",
					EstimatedTime: "15-30 minutes",
					Tips:          []string{"Check name availability first", "Have 3 alternative names ready"},
				},
				{
					Order:         2,
					Instruction:   "Prepare and submit required documents",
					EstimatedTime: "60-90 minutes",
					RequiredDocs:  []string{"Application form", "NIC copies", "Address proof"},
					Tips:          []string{"Ensure all documents are properly certified", "Keep copies for your records"},
				},
				{
					Order:         3,
					Instruction:   "Visit ROC office for document submission and verification",
					InstructionSi: "ලියකියවිලි ඉදිරිපත් කිරීම සහ සත්‍යාපනය සඳහා ROC කාර්යාලයට පිවිසෙන්න",
					InstructionTa: "ஆவண சமர்ப்பிப்பு மற்றும் சரிபார்ப்பிற்காக ROC அலுவலகத்திற்கு செல்லவும்",
					EstimatedTime: "45-60 minutes",
					Tips:          []string{"Arrive early to avoid queues", "Bring all original documents"},
				},
			},
			Requirements: []model.Requirement{
				{Order: 1, Name: "Completed Application Form", Description: "Form ROC 1 duly filled and signed", IsRequired: true},
				{Order: 2, Name: "National Identity Card", Description: "NIC of proprietor/partners (certified copies)", IsRequired: true},
				{Order: 3, Name: "Proof of Business Address", Description: "Lease agreement or property ownership documents", IsRequired: true},
			},
			Fees: []model.Fee{
				{Description: "Registration Fee", Amount: 2500, Currency: "LKR"},
				{Description: "Name Reservation Fee", Amount: 500, Currency: "LKR"},
			},
		},
		{
			Title:             "Obtain Birth Certificate",
			TitleSi:           "උප්පැන්න සහතිකය ලබා ගැනීම",
			TitleTa:           "பிறப்பு சான்றிதழ் பெறுதல்",
			Slug:              "obtain-birth-certificate",
			Description:       "Guide to obtain a certified copy of birth certificate from Registrar General",
			Category:          model.CategoryBirthCertificates,
			Status:            model.StatusActive,
			Keywords:          []string{"birth certificate", "certified copy", "registrar general", "vital records"},
			SearchTags:        []string{"birth", "certificate", "copy", "registrar", "vital"},
			EstimatedDuration: "3-7 days",
			Difficulty:        model.DifficultyEasy,
			Steps: []model.ProcedureStep{
				{
					Order:         1,
					Instruction:   "Visit Registrar General Department or authorized office",
					InstructionSi: "ලේඛකාධිකාරී ජනරාල් දෙපාර්තමේන්තුව හෝ බලයලත් කාර්යාලයට පිවිසෙන්න",
					InstructionTa: "பதிவாளர் ஜெனரல் திணைக்களம் அல்லது அங்கீகரிக்கப்பட்ட அலுவலகத்திற்கு செல்லவும்",
					EstimatedTime: "30 minutes",
					RequiredDocs:  []string{"Application form", "ID proof", "Relationship proof"},
					Tips:          []string{"Call ahead to confirm office hours", "Bring exact change for fees"},
				},
				{
					Order:         2,
					Instruction:   "Fill application form with accurate details",
					EstimatedTime: "10-15 minutes",
					Tips:          []string{"Provide accurate birth details", "Include parent names correctly"},
				},
				{
					Order:         3,
					Instruction:   "Submit application and collect receipt",
					EstimatedTime: "10 minutes",
					Tips:          []string{"Keep receipt safely", "Note collection date"},
				},
			},
			Requirements: []model.Requirement{
				{Order: 1, Name: "Application Form", Description: "Completed application form for birth certificate", IsRequired: true},
				{Order: 2, Name: "Applicant ID Proof", Description: "Valid NIC or passport of applicant", IsRequired: true},
				{Order: 3, Name: "Relationship Proof", Description: "Document proving relationship to the person (if not self)"},
			},
			Fees: []model.Fee{
				{Description: "Certified Copy Fee", Amount: 50, Currency: "LKR"},
			},
		},
	}
}

// Run 写入用户、办公室和流程。已存在的邮箱、办公室名称和 slug 会被跳过。
func Run(ctx context.Context, db *gorm.DB) (Summary, error) {
	var sum Summary
	userRepo := repository.NewUserRepository(db.WithContext(ctx))
	procedureRepo := repository.NewProcedureRepository(db)

	// 1. 用户
	for _, u := range users {
		if _, err := userRepo.FindByEmail(u.email); err == nil {
			continue
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return sum, err
		}
		hashed, err := hash.HashPassword(u.password)
		if err != nil {
			return sum, err
		}
		user := &model.User{
			Email:             u.email,
			Name:              u.name,
			Password:          hashed,
			Role:              u.role,
			PreferredLanguage: model.LanguageEN,
			IsActive:          true,
		}
		if err := userRepo.Create(user); err != nil {
			return sum, fmt.Errorf("seed user %s: %w", u.email, err)
		}
		sum.Users++
	}

	// 2. 办公室，按名称去重
	officeIDs := make([]string, len(offices))
	for i := range offices {
		o := offices[i]
		var existing model.Office
		err := db.WithContext(ctx).Where("name = ?", o.Name).First(&existing).Error
		switch {
		case err == nil:
			officeIDs[i] = existing.ID
			continue
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return sum, err
		}
		if err := db.WithContext(ctx).Create(&o).Error; err != nil {
			return sum, fmt.Errorf("seed office %s: %w", o.Name, err)
		}
		officeIDs[i] = o.ID
		sum.Offices++
	}

	// 3. 流程，按 slug 去重，并关联主办理点
	for _, p := range Procedures() {
		if _, err := procedureRepo.FindBySlug(ctx, p.Slug); err == nil {
			continue
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return sum, err
		}
		p.Version = 1
		p.Offices = []model.ProcedureOffice{{OfficeID: officeIDs[officeFor(p.Category)], IsMain: true}}
		if err := procedureRepo.Create(ctx, &p); err != nil {
			return sum, fmt.Errorf("seed procedure %s: %w", p.Slug, err)
		}
		sum.Procedures++
	}

	log.Infof("[Seed] 写入完成: 用户 %d, 办公室 %d, 流程 %d", sum.Users, sum.Offices, sum.Procedures)
	return sum, nil
}
