package entity

// Claim note categories
const (
	NoteTypeReturn   = "return"
	NoteTypeApproval = "approval"
	NoteTypeGeneral  = "general"
)

// ClaimNumberPrefix starts every generated claim number
const ClaimNumberPrefix = "CLM"

// Seeded document type ids (see migrations/001_initial_schema.sql)
const (
	DocumentTypeInvoice       int64 = 1 // صورتحساب
	DocumentTypePrescription  int64 = 2 // نسخه
	DocumentTypeLabResult     int64 = 3 // جواب آزمایش
	DocumentTypeMedicalReport int64 = 4 // گزارش پزشکی
	DocumentTypeOther         int64 = 5
)

// MIME types that get page counting on upload
const (
	MimeTypePDF = "application/pdf"
)
