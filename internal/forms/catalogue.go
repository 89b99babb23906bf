// internal/forms/catalogue.go
package forms

import (
	"rts-portal/internal/common/storage"
	"rts-portal/internal/common/validation"
	"rts-portal/internal/models"
)

const (
	mobilePattern = `^[6-9]\d{9}$`
	pinPattern    = `^[1-9][0-9]{5}$`
	ifscPattern   = `^[A-Z]{4}0[A-Z0-9]{6}$`

	termsMessage = "You must accept all terms and conditions"
)

var (
	certificatePolicy = storage.Policy{
		MaxBytes:   10 << 20,
		Extensions: []string{".pdf", ".jpg", ".jpeg", ".png"},
	}
	complaintPolicy = storage.Policy{
		MaxBytes:   10 << 20,
		Extensions: []string{".pdf", ".doc", ".docx", ".jpg", ".jpeg", ".png", ".bmp"},
	}
	permitPolicy = storage.Policy{
		MaxBytes:   5 << 20,
		Extensions: []string{".pdf", ".jpg", ".jpeg", ".png", ".bmp"},
	}
)

var (
	certificateMessages = Messages{
		Validation:  "कृपया सर्व आवश्यक फील्ड योग्यरित्या भरा.",
		InvalidData: "अवैध डेटा प्राप्त झाला.",
		Unexpected:  "अर्ज प्रक्रिया करताना अनपेक्षित त्रुटी आली. कृपया पुन्हा प्रयत्न करा.",
		Failure:     "अर्ज सबमिट करण्यात अपयश. कृपया पुन्हा प्रयत्न करा.",
	}
	serviceMessages = Messages{
		Validation:  "कृपया खालील त्रुटी दुरुस्त करा:",
		InvalidData: "अवैध डेटा प्राप्त झाला.",
		Unexpected:  "अनपेक्षित त्रुटी आली. कृपया पुन्हा प्रयत्न करा.",
		Failure:     "अर्ज सबमिट करण्यात अपयश. कृपया पुन्हा प्रयत्न करा.",
		Terms:       termsMessage,
	}
)

func withSuccess(m Messages, success string) Messages {
	m.Success = success
	return m
}

// citizen is the applicant and address block shared by complaint and permit forms.
func citizen(lat, lon float64, coordsRequired bool) []Field {
	latitude := number("Latitude", "Latitude", -90, 90).to(ToLatitude).def(lat)
	longitude := number("Longitude", "Longitude", -180, 180).to(ToLongitude).def(lon)
	if coordsRequired {
		latitude, longitude = latitude.req(), longitude.req()
	}
	return []Field{
		str("Title", "Title", 20).req().to(ToTitle),
		str("FirstName", "First name", 50).req().to(ToFirstName),
		str("MiddleName", "Middle name", 50).to(ToMiddleName),
		str("LastName", "Last name", 50).req().to(ToLastName),
		str("Mobile", "Mobile", 10).req().to(ToMobile).match(mobilePattern, "Please enter a valid 10-digit mobile number"),
		str("Email", "Email", 80).to(ToEmail).email(),
		str("Street", "Street", 100).req().to(ToStreet),
		str("Area", "Area", 100).req().to(ToArea),
		str("City", "City", 50).req().to(ToCity),
		str("PinCode", "Pin code", 6).req().to(ToPinCode).match(pinPattern, "Please enter a valid 6-digit pin code"),
		str("Landmark", "Landmark", 100).req().to(ToLandmark),
		latitude,
		longitude,
	}
}

// localize overrides messages per field name and validation code.
func localize(fields []Field, messages map[string]map[string]string) []Field {
	out := make([]Field, len(fields))
	for i, f := range fields {
		for code, text := range messages[f.Name] {
			f = f.msg(code, text)
		}
		out[i] = f
	}
	return out
}

func concat(groups ...[]Field) []Field {
	var out []Field
	for _, g := range groups {
		out = append(out, g...)
	}
	return out
}

// certificateAddress is the address block of the certificate forms.
func certificateAddress() []Field {
	return []Field{
		str("Mobile", "Mobile", 15).req().to(ToMobile),
		str("PinCode", "Pin code", 10).req().to(ToPinCode),
		str("Street", "Street", 100).req().to(ToStreet),
		str("Area", "Area", 100).req().to(ToArea),
		str("City", "City", 50).req().to(ToCity),
		str("District", "District", 50).req().to(ToDistrict),
		number("Latitude", "Latitude", -90, 90).to(ToLatitude),
		number("Longitude", "Longitude", -180, 180).to(ToLongitude),
	}
}

func birthCertificate() *Definition {
	return &Definition{
		Route:    "BirthCertificate",
		Type:     models.TypeBirthCertificate,
		Prefix:   "BRT",
		FormName: "Birth Certificate Application",
		Priority: models.PriorityMedium,
		Fields: concat([]Field{
			str("ChildName", "Child name", 100).req(),
			str("Gender", "Gender", 20).req(),
			date("DateOfBirth", "Date of birth").req(),
			str("PlaceOfBirth", "Place of birth", 100).req(),
			str("HospitalName", "Hospital name", 100).req(),
			str("FatherTitle", "Father title", 20).req(),
			str("FatherFirstName", "Father first name", 50).req(),
			str("FatherLastName", "Father last name", 50).req(),
			str("MotherTitle", "Mother title", 20).req(),
			str("MotherFirstName", "Mother first name", 50).req(),
			str("MotherLastName", "Mother last name", 50).req(),
			str("Title", "Title", 20).req().to(ToTitle),
			str("FirstName", "First name", 40).req().to(ToFirstName),
			str("MiddleName", "Middle name", 40).to(ToMiddleName),
			str("LastName", "Last name", 40).req().to(ToLastName),
			str("RelationshipWithChild", "Relationship with child", 50).req(),
			integer("NumberOfCopies", "Number of copies", 1, 50).req(),
			str("Landmark", "Landmark", 100).to(ToLandmark),
			str("Purpose", "Purpose", 200).req(),
		}, certificateAddress()),
		Documents: []DocumentSlot{
			{Field: "DischargeDocument", Label: "Hospital discharge summary", Subfolder: "birth-certificates/discharge"},
			{Field: "IdProofDocument", Label: "Identity proof", Subfolder: "birth-certificates/id-proofs"},
			{Field: "AddressProofDocument", Label: "Address proof", Subfolder: "birth-certificates/address-proofs"},
			{Field: "AdditionalDocument", Label: "Additional document", Subfolder: "birth-certificates/additional"},
		},
		Policy:   certificatePolicy,
		Messages: withSuccess(certificateMessages, "जन्म प्रमाणपत्र अर्ज यशस्वीरित्या सबमिट झाला!"),
	}
}

func deathCertificate() *Definition {
	return &Definition{
		Route:    "DeathCertificate",
		Type:     models.TypeDeathCertificate,
		Prefix:   "DTH",
		FormName: "Death Certificate Application",
		Priority: models.PriorityMedium,
		Fields: concat([]Field{
			str("DeceasedFullName", "Deceased full name", 100).req(),
			date("DateOfDeath", "Date of death").req(),
			clock("TimeOfDeath", "Time of death").req(),
			str("Gender", "Gender", 20).req(),
			integer("AgeAtDeath", "Age at death", 0, 150).req(),
			str("PlaceOfDeath", "Place of death", 100).req(),
			str("CauseOfDeath", "Cause of death", 200).req(),
			str("HospitalName", "Hospital name", 100),
			str("ApplicantTitle", "Title", 20).req().to(ToTitle),
			str("ApplicantFirstName", "First name", 40).req().to(ToFirstName),
			str("ApplicantMiddleName", "Middle name", 40).to(ToMiddleName),
			str("ApplicantLastName", "Last name", 40).req().to(ToLastName),
			str("RelationshipWithDeceased", "Relationship with deceased", 50).req(),
			integer("NumberOfCopies", "Number of copies", 1, 50).req(),
			str("Purpose", "Purpose", 200).req(),
		}, certificateAddress()),
		Documents: []DocumentSlot{
			{Field: "MedicalCertificate", Label: "Medical certificate of cause of death", Subfolder: "death-certificates/medical"},
			{Field: "IdProofDocument", Label: "Identity proof", Subfolder: "death-certificates/id-proofs"},
			{Field: "AddressProofDocument", Label: "Address proof", Subfolder: "death-certificates/address-proofs"},
			{Field: "AdditionalDocument", Label: "Additional document", Subfolder: "death-certificates/additional"},
		},
		Policy:   certificatePolicy,
		Messages: withSuccess(certificateMessages, "मृत्यू प्रमाणपत्र अर्ज यशस्वीरित्या सबमिट झाला!"),
	}
}

func marriageCertificate() *Definition {
	party := func(prefix, label string, minAge float64) []Field {
		return []Field{
			str(prefix+"Name", label+" name", 100).req(),
			str(prefix+"AlternateName", label+" alternate name", 100),
			str(prefix+"ReligionBirth", label+" religion by birth", 50).req(),
			date(prefix+"BirthDate", label+" birth date").req(),
			integer(prefix+"Age", label+" age", minAge, 100).req(),
			str(prefix+"MaritalStatus", label+" marital status", 30).req(),
			str(prefix+"Occupation", label+" occupation", 100).req(),
			str(prefix+"Address", label+" address", 200).req(),
		}
	}
	return &Definition{
		Route:    "MarriageCertificate",
		Type:     models.TypeMarriageCertificate,
		Prefix:   "MRG",
		FormName: "Marriage Certificate Application",
		Priority: models.PriorityMedium,
		Fields: concat([]Field{
			str("ApplicantTitle", "Title", 20).req().to(ToTitle),
			str("ApplicantFirstName", "First name", 40).req().to(ToFirstName),
			str("ApplicantMiddleName", "Middle name", 40).to(ToMiddleName),
			str("ApplicantLastName", "Last name", 40).req().to(ToLastName),
			str("ApplicantAddress", "Applicant address", 200).req(),
			str("Mobile", "Mobile", 15).req().to(ToMobile),
			str("Email", "Email", 80).to(ToEmail).email(),
			str("Zone", "Zone", 50).req(),
			date("MarriageDate", "Marriage date").req(),
			str("PersonalLaw", "Personal law", 50).req(),
			str("PlaceOfMarriage", "Place of marriage", 200).req(),
		},
			party("Groom", "Groom", 21),
			party("Bride", "Bride", 18),
			[]Field{
				str("PriestName", "Priest name", 100).req(),
				str("PriestReligion", "Priest religion", 50).req(),
				integer("PriestAge", "Priest age", 21, 100).req(),
				str("PriestAddress", "Priest address", 200).req(),
				number("Latitude", "Latitude", -90, 90).to(ToLatitude),
				number("Longitude", "Longitude", -180, 180).to(ToLongitude),
			},
		),
		Documents: []DocumentSlot{
			{Field: "GroomPhoto", Label: "Groom photo", Subfolder: "marriage-certificates/groom-photos"},
			{Field: "BridePhoto", Label: "Bride photo", Subfolder: "marriage-certificates/bride-photos"},
			{Field: "PriestPhoto", Label: "Priest photo", Subfolder: "marriage-certificates/priest-photos"},
			{Field: "MarriageCard", Label: "Marriage invitation card", Subfolder: "marriage-certificates/marriage-cards"},
			{Field: "GroupPhoto", Label: "Group photo", Subfolder: "marriage-certificates/group-photos"},
		},
		Policy:   certificatePolicy,
		Messages: withSuccess(certificateMessages, "विवाह प्रमाणपत्र अर्ज यशस्वीरित्या सबमिट झाला!"),
	}
}

func potholeComplaint() *Definition {
	return &Definition{
		Route:    "PotholeComplaint",
		Type:     models.TypePothole,
		Prefix:   "RPF",
		FormName: "Pothole Repair Complaint",
		Priority: models.PriorityHigh,
		Fields: concat(citizen(18.5204, 73.8567, true), []Field{
			str("RoadName", "Road name", 100).req(),
			str("PotholeSize", "Pothole size", 50).req(),
			str("TrafficImpact", "Traffic impact", 50).req(),
			str("RoadType", "Road type", 50).req(),
			integer("PotholeCount", "Pothole count", 1, 999).req(),
		}),
		Documents: []DocumentSlot{
			{Field: "DocumentFile", Label: "Photo or document", Subfolder: "pothole-complaints"},
		},
		Policy:   complaintPolicy,
		Messages: withSuccess(serviceMessages, "खड्डे भरणे तक्रार यशस्वीरित्या सबमिट झाली!"),
	}
}

func gutterComplaint() *Definition {
	fields := localize(concat(citizen(18.5204, 73.8567, true), []Field{
		str("ZoneType", "Zone", 50).req(),
	}), map[string]map[string]string{
		"Title":     {validation.CodeRequired: "शीर्षक आवश्यक आहे"},
		"FirstName": {validation.CodeRequired: "पहिले नाव आवश्यक आहे"},
		"LastName":  {validation.CodeRequired: "आडनाव आवश्यक आहे"},
		"Mobile":    {validation.CodeRequired: "मोबाईल क्रमांक आवश्यक आहे", validation.CodePattern: "वैध 10 अंकी मोबाईल क्रमांक टाका"},
		"Email":     {validation.CodeFormat: "वैध ईमेल टाका"},
		"ZoneType":  {validation.CodeRequired: "प्रभाग निवडा"},
		"Street":    {validation.CodeRequired: "रस्त्याचे नाव आवश्यक आहे"},
		"Area":      {validation.CodeRequired: "क्षेत्राचे नाव आवश्यक आहे"},
		"City":      {validation.CodeRequired: "शहराचे नाव आवश्यक आहे"},
		"PinCode":   {validation.CodeRequired: "पिन कोड आवश्यक आहे", validation.CodePattern: "वैध 6 अंकी पिन कोड टाका"},
		"Landmark":  {validation.CodeRequired: "ओळखचिन्ह आवश्यक आहे"},
		"Latitude": {
			validation.CodeRequired: "अक्षांश आवश्यक आहे",
			validation.CodeMinimum:  "अक्षांश -90 ते 90 मध्ये असावा",
			validation.CodeMaximum:  "अक्षांश -90 ते 90 मध्ये असावा",
		},
		"Longitude": {
			validation.CodeRequired: "रेखांश आवश्यक आहे",
			validation.CodeMinimum:  "रेखांश -180 ते 180 मध्ये असावा",
			validation.CodeMaximum:  "रेखांश -180 ते 180 मध्ये असावा",
		},
	})
	return &Definition{
		Route:    "GatturComplaint",
		Type:     models.TypeGutter,
		Prefix:   "GUT",
		FormName: "Gutter Repair Complaint",
		Priority: models.PriorityHigh,
		Fields:   fields,
		Documents: []DocumentSlot{
			{Field: "DocumentFile", Label: "Photo or document", Subfolder: "gutter-complaints"},
		},
		Policy:   complaintPolicy,
		Messages: withSuccess(serviceMessages, "गटार तक्रार यशस्वीरित्या सबमिट झाली!"),
	}
}

func ofcPermission() *Definition {
	return &Definition{
		Route:    "OFCPermission",
		Type:     models.TypeOFCPermission,
		Prefix:   "OFC",
		FormName: "OFC Installation Permission",
		Priority: models.PriorityMedium,
		Fields: concat(citizen(18.5204, 73.8567, true), []Field{
			str("InstallationType", "Installation type", 50).req(),
			str("CableType", "Cable type", 50).req(),
			str("CompanyName", "Company name", 200).req(),
			str("CompanyRegNo", "Company registration number", 100),
			str("AuthorizedRep", "Authorized representative name", 100),
			number("TotalLength", "Cable length", 0.1, 10000).req().
				msg(validation.CodeMinimum, "Length must be between 0.1 and 10000 meters").
				msg(validation.CodeMaximum, "Length must be between 0.1 and 10000 meters"),
			number("TrenchWidth", "Trench width", 0.1, 50).
				msg(validation.CodeMinimum, "Trench width must be between 0.1 and 50 meters").
				msg(validation.CodeMaximum, "Trench width must be between 0.1 and 50 meters"),
			str("PlaceName", "Place name", 100),
			str("WorkType", "Work type", 50),
		}),
		Documents: []DocumentSlot{
			{Field: "DocumentFile", Label: "Route plan or document", Subfolder: "ofc-permission/general"},
		},
		Policy:   complaintPolicy,
		Messages: withSuccess(serviceMessages, "OFC परवानगी अर्ज यशस्वीरित्या सबमिट झाला!"),
	}
}

func treeDocuments(folder string, last DocumentSlot) []DocumentSlot {
	return []DocumentSlot{
		{Field: "DocumentFile", Label: "Supporting document", Subfolder: folder + "/general"},
		{Field: "PropertyTaxReceiptFile", Label: "Property tax receipt", Subfolder: folder + "/property-tax-receipts"},
		{Field: "TreePhotographFile", Label: "Tree photograph", Subfolder: folder + "/tree-photographs"},
		{Field: "AadhaarCardFile", Label: "Aadhaar card", Subfolder: folder + "/aadhaar-cards"},
		{Field: "BuildingPermissionFile", Label: "Building permission", Subfolder: folder + "/building-permissions"},
		{Field: "SanctionedPlanFile", Label: "Sanctioned plan", Subfolder: folder + "/sanctioned-plans"},
		last,
	}
}

func termFields(n int) []string {
	terms := make([]string, n)
	for i := range terms {
		terms[i] = "TermsCondition" + string(rune('1'+i))
	}
	return terms
}

func treeTrimming() *Definition {
	m := withSuccess(serviceMessages, "वृक्ष छाटणी अर्ज यशस्वीरित्या सबमिट झाला!")
	m.Updated = "वृक्ष छाटणी अर्ज यशस्वीरित्या अपडेट झाला!"
	m.Deleted = "वृक्ष छाटणी अर्ज यशस्वीरित्या डिलीट झाला!"
	return &Definition{
		Route:    "TreeTrimming",
		Type:     models.TypeTreeTrimming,
		Prefix:   "TTR",
		FormName: "Tree Trimming Application",
		Priority: models.PriorityMedium,
		Fields: concat(citizen(19.8762, 75.3433, false), []Field{
			str("ReasonForTrimming", "Reason for trimming", 100).req(),
			str("TreeType", "Tree type", 50).req(),
			str("OwnerType", "Owner type", 50).req(),
			str("TypeOfApplicant", "Type of applicant", 50).req(),
			integer("TreeCount", "Tree count", 1, 100).req(),
			str("TreeSpecies", "Tree species", 100),
			str("OtherReason", "Other reason", 500),
			boolean("SelectAllTerms", "Select all terms"),
		}),
		Documents: treeDocuments("tree-trimming",
			DocumentSlot{Field: "NOCLetterFile", Label: "NOC letter", Subfolder: "tree-trimming/noc-letters"}),
		Terms:     termFields(6),
		Policy:    permitPolicy,
		Messages:  m,
		Updatable: true,
	}
}

func treeFelling() *Definition {
	return &Definition{
		Route:    "TreeFelling",
		Type:     models.TypeTreeFelling,
		Prefix:   "TFL",
		FormName: "Tree Felling Application",
		Priority: models.PriorityMedium,
		Fields: concat(citizen(19.8762, 75.3433, false), []Field{
			str("ReasonForFelling", "Reason for cutting", 100).req(),
			str("TreeType", "Tree type", 50).req(),
			str("OwnerType", "Owner type", 50).req(),
			str("TypeOfApplicant", "Type of applicant", 50).req(),
			integer("NoOfTreeFelling", "Number of tree felling", 1, 100).req().
				msg(validation.CodeMinimum, "Tree count must be between 1 and 100").
				msg(validation.CodeMaximum, "Tree count must be between 1 and 100"),
			str("TreeSpecies", "Tree species", 100),
			str("OtherReason", "Other reason", 500),
			boolean("SelectAllTerms", "Select all terms"),
		}),
		Documents: treeDocuments("tree-felling",
			DocumentSlot{Field: "FormCDFile", Label: "Form C/D", Subfolder: "tree-felling/form-cd"}),
		Terms:    termFields(4),
		Policy:   permitPolicy,
		Messages: withSuccess(serviceMessages, "वृक्ष तोड अर्ज यशस्वीरित्या सबमिट झाला!"),
		Extra: func(values map[string]interface{}) map[string]interface{} {
			n, _ := values["NoOfTreeFelling"].(int64)
			// one felled tree is compensated by ten new ones
			return map[string]interface{}{"treesToPlant": n * 10}
		},
	}
}

func depositRefund() *Definition {
	amount := func(name, label string) Field {
		f := number(name, label, 0, 999999.99)
		text := label + " must be between 0 and 999999.99"
		return f.msg(validation.CodeMinimum, text).msg(validation.CodeMaximum, text)
	}
	m := withSuccess(serviceMessages, "सिक्युरिटी डिपॉझिट परतावा अर्ज यशस्वीरित्या सबमिट झाला!")
	m.Terms = "Declaration is required"
	return &Definition{
		Route:    "DepositRefund",
		Type:     models.TypeDepositRefund,
		Prefix:   "DEP",
		FormName: "Security Deposit Refund",
		Priority: models.PriorityMedium,
		Fields: concat(citizen(19.8762, 75.3433, false), []Field{
			str("ApplicantAddress", "Applicant address", 200),
			str("ApplicantType", "Applicant type", 50).req(),
			str("ZoneName", "Zone name", 50).req(),
			str("GutNo", "Gut number", 20).req(),
			str("SurveyNo", "Survey number", 20).req(),
			str("CtsNo", "CTS number", 20).req(),
			str("OccupancyCertificateNo", "Occupancy certificate number", 100).req(),
			str("PropertyAddress", "Property address", 300).req(),
			str("ReasonForDeposit", "Reason for deposit", 200),
			str("BuildingPermitFileNo", "Building permit file number", 50),
			amount("BuildingDepositAmount", "Building deposit amount"),
			amount("TreeDepositAmount", "Tree deposit amount"),
			str("BankAccountNumber", "Bank account number", 20),
			str("BankName", "Bank name", 100),
			str("IFSCCode", "IFSC code", 11).match(ifscPattern, "Please enter a valid IFSC code (e.g., SBIN0001234)"),
			str("ChallanNo", "Challan number", 50),
			amount("ChallanAmount", "Challan amount"),
			date("ChallanPaidDate", "Challan paid date"),
			str("HasGardenNOC", "Garden NOC", 10),
			str("OccupancyCertificateStatus", "Occupancy certificate status", 50),
			boolean("RefundBuildingDeposit", "Refund building deposit"),
			boolean("RefundTreeDeposit", "Refund tree deposit"),
			str("Notes", "Notes", 1000),
			boolean("SelectAll", "Select all"),
		}),
		Documents: []DocumentSlot{
			{Field: "DocumentFile", Label: "Supporting document", Subfolder: "deposit-refund/general"},
			{Field: "OccupancyCertFile", Label: "Occupancy certificate", Subfolder: "deposit-refund/occupancy-certificates"},
			{Field: "BuildingDepReceiptFile", Label: "Building deposit receipt", Subfolder: "deposit-refund/building-deposit-receipts"},
			{Field: "TreeDepReceiptFile", Label: "Tree deposit receipt", Subfolder: "deposit-refund/tree-deposit-receipts"},
			{Field: "PropertyTaxReceiptFile", Label: "Property tax receipt", Subfolder: "deposit-refund/property-tax-receipts"},
			{Field: "BuildingPermissionCertFile", Label: "Building permission certificate", Subfolder: "deposit-refund/building-permission-certs"},
			{Field: "ChallanFile", Label: "Challan", Subfolder: "deposit-refund/challans"},
			{Field: "NOCFile", Label: "Garden department NOC", Subfolder: "deposit-refund/noc-letters"},
		},
		Terms:    []string{"Declaration"},
		Policy:   permitPolicy,
		Messages: m,
	}
}

func catalogue() []*Definition {
	return []*Definition{
		birthCertificate(),
		deathCertificate(),
		marriageCertificate(),
		potholeComplaint(),
		gutterComplaint(),
		ofcPermission(),
		treeTrimming(),
		treeFelling(),
		depositRefund(),
	}
}
