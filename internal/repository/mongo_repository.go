package repository

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/noah-isme/pilotaja-api/internal/models"
)

// Collection names; each module owns its own collection.
const (
	AppointmentsCollection = "appointments"
	InstructorsCollection  = "instructors"
	StudentsCollection     = "students"
)

type appointmentDocument struct {
	ID                 string               `bson:"_id"`
	InstructorID       string               `bson:"instructor_id"`
	StudentID          string               `bson:"student_id"`
	StartTime          time.Time            `bson:"start_time"`
	EndTime            time.Time            `bson:"end_time"`
	DurationMinutes    int                  `bson:"duration_minutes"`
	Status             string               `bson:"status"`
	Price              primitive.Decimal128 `bson:"price"`
	Notes              *string              `bson:"notes,omitempty"`
	MeetingAddress     *string              `bson:"meeting_address,omitempty"`
	Latitude           *float64             `bson:"latitude,omitempty"`
	Longitude          *float64             `bson:"longitude,omitempty"`
	CancellationReason *string              `bson:"cancellation_reason,omitempty"`
	ConfirmedAt        *time.Time           `bson:"confirmed_at,omitempty"`
	StartedAt          *time.Time           `bson:"started_at,omitempty"`
	CompletedAt        *time.Time           `bson:"completed_at,omitempty"`
	CancelledAt        *time.Time           `bson:"cancelled_at,omitempty"`
	NoShowAt           *time.Time           `bson:"no_show_at,omitempty"`
	Version            int                  `bson:"version"`
	CreatedAt          time.Time            `bson:"created_at"`
	UpdatedAt          time.Time            `bson:"updated_at"`
}

func toDecimal128(d decimal.Decimal) (primitive.Decimal128, error) {
	return primitive.ParseDecimal128(d.String())
}

func fromDecimal128(d primitive.Decimal128) (decimal.Decimal, error) {
	return decimal.NewFromString(d.String())
}

func newAppointmentDocument(a *models.Appointment) (*appointmentDocument, error) {
	price, err := toDecimal128(a.Price)
	if err != nil {
		return nil, fmt.Errorf("encode price: %w", err)
	}
	return &appointmentDocument{
		ID:                 a.ID,
		InstructorID:       a.InstructorID,
		StudentID:          a.StudentID,
		StartTime:          a.StartTime.UTC(),
		EndTime:            a.EndTime.UTC(),
		DurationMinutes:    a.DurationMinutes,
		Status:             string(a.Status),
		Price:              price,
		Notes:              a.Notes,
		MeetingAddress:     a.MeetingAddress,
		Latitude:           a.Latitude,
		Longitude:          a.Longitude,
		CancellationReason: a.CancellationReason,
		ConfirmedAt:        a.ConfirmedAt,
		StartedAt:          a.StartedAt,
		CompletedAt:        a.CompletedAt,
		CancelledAt:        a.CancelledAt,
		NoShowAt:           a.NoShowAt,
		Version:            a.Version,
		CreatedAt:          a.CreatedAt,
		UpdatedAt:          a.UpdatedAt,
	}, nil
}

func (d *appointmentDocument) model() (*models.Appointment, error) {
	price, err := fromDecimal128(d.Price)
	if err != nil {
		return nil, fmt.Errorf("decode price: %w", err)
	}
	return &models.Appointment{
		ID:                 d.ID,
		InstructorID:       d.InstructorID,
		StudentID:          d.StudentID,
		StartTime:          d.StartTime.UTC(),
		EndTime:            d.EndTime.UTC(),
		DurationMinutes:    d.DurationMinutes,
		Status:             models.AppointmentStatus(d.Status),
		Price:              price,
		Notes:              d.Notes,
		MeetingAddress:     d.MeetingAddress,
		Latitude:           d.Latitude,
		Longitude:          d.Longitude,
		CancellationReason: d.CancellationReason,
		ConfirmedAt:        d.ConfirmedAt,
		StartedAt:          d.StartedAt,
		CompletedAt:        d.CompletedAt,
		CancelledAt:        d.CancelledAt,
		NoShowAt:           d.NoShowAt,
		Version:            d.Version,
		CreatedAt:          d.CreatedAt.UTC(),
		UpdatedAt:          d.UpdatedAt.UTC(),
	}, nil
}

// MongoAppointmentRepository persists appointments in MongoDB.
type MongoAppointmentRepository struct {
	coll *mongo.Collection
}

// NewMongoAppointmentRepository constructs the repository over db.appointments.
func NewMongoAppointmentRepository(db *mongo.Database) *MongoAppointmentRepository {
	return &MongoAppointmentRepository{coll: db.Collection(AppointmentsCollection)}
}

// EnsureIndexes creates the indexes used by conflict lookups and listings.
func (r *MongoAppointmentRepository) EnsureIndexes(ctx context.Context) error {
	indexModels := []mongo.IndexModel{
		{Keys: bson.D{{Key: "instructor_id", Value: 1}, {Key: "status", Value: 1}, {Key: "start_time", Value: 1}}},
		{Keys: bson.D{{Key: "student_id", Value: 1}, {Key: "start_time", Value: 1}}},
	}
	if _, err := r.coll.Indexes().CreateMany(ctx, indexModels); err != nil {
		return fmt.Errorf("create appointment indexes: %w", err)
	}
	return nil
}

// GetByID fetches an appointment by id.
func (r *MongoAppointmentRepository) GetByID(ctx context.Context, id string) (*models.Appointment, error) {
	var doc appointmentDocument
	if err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&doc); err != nil {
		return nil, fmt.Errorf("get appointment: %w", translateMongo(err))
	}
	return doc.model()
}

// List returns appointments matching the filter ordered by start time.
func (r *MongoAppointmentRepository) List(ctx context.Context, filter models.AppointmentFilter) ([]models.Appointment, error) {
	opts := options.Find().SetSort(bson.D{{Key: "start_time", Value: 1}, {Key: "_id", Value: 1}})
	cursor, err := r.coll.Find(ctx, appointmentQuery(filter), opts)
	if err != nil {
		return nil, fmt.Errorf("list appointments: %w", err)
	}
	defer cursor.Close(ctx)

	appointments := make([]models.Appointment, 0)
	for cursor.Next(ctx) {
		var doc appointmentDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode appointment: %w", err)
		}
		appt, err := doc.model()
		if err != nil {
			return nil, err
		}
		appointments = append(appointments, *appt)
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("list appointments: %w", err)
	}
	return appointments, nil
}

// Count returns the number of appointments matching the filter.
func (r *MongoAppointmentRepository) Count(ctx context.Context, filter models.AppointmentFilter) (int, error) {
	total, err := r.coll.CountDocuments(ctx, appointmentQuery(filter))
	if err != nil {
		return 0, fmt.Errorf("count appointments: %w", err)
	}
	return int(total), nil
}

// Create inserts a new appointment at version 1.
func (r *MongoAppointmentRepository) Create(ctx context.Context, appt *models.Appointment) error {
	if appt.ID == "" {
		appt.ID = uuid.NewString()
	}
	if appt.CreatedAt.IsZero() {
		appt.CreatedAt = time.Now().UTC()
	}
	appt.UpdatedAt = appt.CreatedAt
	appt.EndTime = appt.End()
	appt.Version = 1

	doc, err := newAppointmentDocument(appt)
	if err != nil {
		return fmt.Errorf("create appointment: %w", err)
	}
	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("create appointment: %w", translateMongo(err))
	}
	return nil
}

// Update replaces the document when its version still matches.
func (r *MongoAppointmentRepository) Update(ctx context.Context, appt *models.Appointment) error {
	expected := appt.Version
	updated := *appt
	updated.UpdatedAt = time.Now().UTC()
	updated.EndTime = updated.End()
	updated.Version = expected + 1

	doc, err := newAppointmentDocument(&updated)
	if err != nil {
		return fmt.Errorf("update appointment: %w", err)
	}
	result, err := r.coll.ReplaceOne(ctx, bson.M{"_id": appt.ID, "version": expected}, doc)
	if err != nil {
		return fmt.Errorf("update appointment: %w", err)
	}
	if result.MatchedCount == 0 {
		exists, err := r.coll.CountDocuments(ctx, bson.M{"_id": appt.ID})
		if err != nil {
			return fmt.Errorf("update appointment: %w", err)
		}
		if exists == 0 {
			return fmt.Errorf("update appointment %s: %w", appt.ID, ErrNotFound)
		}
		return fmt.Errorf("update appointment %s: %w", appt.ID, ErrStaleVersion)
	}
	*appt = updated
	return nil
}

func appointmentQuery(filter models.AppointmentFilter) bson.M {
	query := bson.M{}
	if filter.InstructorID != "" {
		query["instructor_id"] = filter.InstructorID
	}
	if filter.StudentID != "" {
		query["student_id"] = filter.StudentID
	}
	if len(filter.Statuses) > 0 {
		query["status"] = bson.M{"$in": filter.StatusStrings()}
	}
	startRange := bson.M{}
	if filter.From != nil {
		startRange["$gte"] = filter.From.UTC()
	}
	if filter.To != nil {
		startRange["$lt"] = filter.To.UTC()
	}
	if len(startRange) > 0 {
		query["start_time"] = startRange
	}
	return query
}

type availabilityDocument struct {
	ID        string `bson:"id"`
	DayOfWeek int    `bson:"day_of_week"`
	Start     int    `bson:"start_minute"`
	End       int    `bson:"end_minute"`
}

type instructorDocument struct {
	ID              string                 `bson:"_id"`
	FullName        string                 `bson:"full_name"`
	Email           string                 `bson:"email"`
	Phone           string                 `bson:"phone"`
	LicenseCategory string                 `bson:"license_category"`
	HourlyRate      primitive.Decimal128   `bson:"hourly_rate"`
	Timezone        string                 `bson:"timezone"`
	Rating          float64                `bson:"rating"`
	TotalLessons    int                    `bson:"total_lessons"`
	Active          bool                   `bson:"active"`
	Availability    []availabilityDocument `bson:"availability"`
	CreatedAt       time.Time              `bson:"created_at"`
	UpdatedAt       time.Time              `bson:"updated_at"`
}

func newInstructorDocument(i *models.Instructor) (*instructorDocument, error) {
	rate, err := toDecimal128(i.HourlyRate)
	if err != nil {
		return nil, fmt.Errorf("encode hourly rate: %w", err)
	}
	windows := make([]availabilityDocument, 0, len(i.Availability))
	for _, w := range i.Availability {
		windows = append(windows, availabilityDocument{ID: w.ID, DayOfWeek: int(w.DayOfWeek), Start: int(w.Start), End: int(w.End)})
	}
	return &instructorDocument{
		ID:              i.ID,
		FullName:        i.FullName,
		Email:           i.Email,
		Phone:           i.Phone,
		LicenseCategory: i.LicenseCategory,
		HourlyRate:      rate,
		Timezone:        i.Timezone,
		Rating:          i.Rating,
		TotalLessons:    i.TotalLessons,
		Active:          i.Active,
		Availability:    windows,
		CreatedAt:       i.CreatedAt,
		UpdatedAt:       i.UpdatedAt,
	}, nil
}

func (d *instructorDocument) model() (*models.Instructor, error) {
	rate, err := fromDecimal128(d.HourlyRate)
	if err != nil {
		return nil, fmt.Errorf("decode hourly rate: %w", err)
	}
	windows := make([]models.AvailabilityWindow, 0, len(d.Availability))
	for _, w := range d.Availability {
		windows = append(windows, models.AvailabilityWindow{
			ID:           w.ID,
			InstructorID: d.ID,
			DayOfWeek:    time.Weekday(w.DayOfWeek),
			Start:        models.TimeOfDay(w.Start),
			End:          models.TimeOfDay(w.End),
		})
	}
	return &models.Instructor{
		ID:              d.ID,
		FullName:        d.FullName,
		Email:           d.Email,
		Phone:           d.Phone,
		LicenseCategory: d.LicenseCategory,
		HourlyRate:      rate,
		Timezone:        d.Timezone,
		Rating:          d.Rating,
		TotalLessons:    d.TotalLessons,
		Active:          d.Active,
		Availability:    windows,
		CreatedAt:       d.CreatedAt.UTC(),
		UpdatedAt:       d.UpdatedAt.UTC(),
	}, nil
}

// MongoInstructorRepository persists instructors with embedded availability windows.
type MongoInstructorRepository struct {
	coll *mongo.Collection
}

// NewMongoInstructorRepository constructs the repository over db.instructors.
func NewMongoInstructorRepository(db *mongo.Database) *MongoInstructorRepository {
	return &MongoInstructorRepository{coll: db.Collection(InstructorsCollection)}
}

// EnsureIndexes creates the unique email index.
func (r *MongoInstructorRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("create instructor indexes: %w", err)
	}
	return nil
}

// GetByID fetches an instructor by id.
func (r *MongoInstructorRepository) GetByID(ctx context.Context, id string) (*models.Instructor, error) {
	var doc instructorDocument
	if err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&doc); err != nil {
		return nil, fmt.Errorf("get instructor: %w", translateMongo(err))
	}
	return doc.model()
}

// List returns instructors matching the filter ordered by name.
func (r *MongoInstructorRepository) List(ctx context.Context, filter models.InstructorFilter) ([]models.Instructor, error) {
	cursor, err := r.coll.Find(ctx, instructorQuery(filter), options.Find().SetSort(bson.D{{Key: "full_name", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("list instructors: %w", err)
	}
	var docs []instructorDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode instructors: %w", err)
	}
	instructors := make([]models.Instructor, 0, len(docs))
	for i := range docs {
		instructor, err := docs[i].model()
		if err != nil {
			return nil, err
		}
		instructors = append(instructors, *instructor)
	}
	return instructors, nil
}

// Count returns the number of instructors matching the filter.
func (r *MongoInstructorRepository) Count(ctx context.Context, filter models.InstructorFilter) (int, error) {
	total, err := r.coll.CountDocuments(ctx, instructorQuery(filter))
	if err != nil {
		return 0, fmt.Errorf("count instructors: %w", err)
	}
	return int(total), nil
}

// Create inserts a new instructor.
func (r *MongoInstructorRepository) Create(ctx context.Context, instructor *models.Instructor) error {
	if instructor.ID == "" {
		instructor.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if instructor.CreatedAt.IsZero() {
		instructor.CreatedAt = now
	}
	instructor.UpdatedAt = now
	for i := range instructor.Availability {
		if instructor.Availability[i].ID == "" {
			instructor.Availability[i].ID = uuid.NewString()
		}
		instructor.Availability[i].InstructorID = instructor.ID
	}

	doc, err := newInstructorDocument(instructor)
	if err != nil {
		return fmt.Errorf("create instructor: %w", err)
	}
	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("create instructor: %w", translateMongo(err))
	}
	return nil
}

// Update rewrites the editable instructor fields. total_lessons is left to IncrementTotalLessons
// and the stored value is copied back into instructor.
func (r *MongoInstructorRepository) Update(ctx context.Context, instructor *models.Instructor) error {
	instructor.UpdatedAt = time.Now().UTC()
	for i := range instructor.Availability {
		if instructor.Availability[i].ID == "" {
			instructor.Availability[i].ID = uuid.NewString()
		}
		instructor.Availability[i].InstructorID = instructor.ID
	}
	doc, err := newInstructorDocument(instructor)
	if err != nil {
		return fmt.Errorf("update instructor: %w", err)
	}
	update := bson.M{"$set": bson.M{
		"full_name":        doc.FullName,
		"email":            doc.Email,
		"phone":            doc.Phone,
		"license_category": doc.LicenseCategory,
		"hourly_rate":      doc.HourlyRate,
		"timezone":         doc.Timezone,
		"rating":           doc.Rating,
		"active":           doc.Active,
		"availability":     doc.Availability,
		"updated_at":       doc.UpdatedAt,
	}}
	opts := options.FindOneAndUpdate().
		SetReturnDocument(options.After).
		SetProjection(bson.M{"total_lessons": 1})
	var stored struct {
		TotalLessons int `bson:"total_lessons"`
	}
	if err := r.coll.FindOneAndUpdate(ctx, bson.M{"_id": instructor.ID}, update, opts).Decode(&stored); err != nil {
		return fmt.Errorf("update instructor %s: %w", instructor.ID, translateMongo(err))
	}
	instructor.TotalLessons = stored.TotalLessons
	return nil
}

// IncrementTotalLessons atomically adds delta to the lesson counter.
func (r *MongoInstructorRepository) IncrementTotalLessons(ctx context.Context, id string, delta int) error {
	update := bson.M{
		"$inc": bson.M{"total_lessons": delta},
		"$set": bson.M{"updated_at": time.Now().UTC()},
	}
	result, err := r.coll.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return fmt.Errorf("increment instructor lessons: %w", err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("increment instructor lessons %s: %w", id, ErrNotFound)
	}
	return nil
}

func instructorQuery(filter models.InstructorFilter) bson.M {
	query := bson.M{}
	if filter.Active != nil {
		query["active"] = *filter.Active
	}
	if filter.LicenseCategory != "" {
		query["license_category"] = primitive.Regex{Pattern: "^" + regexp.QuoteMeta(filter.LicenseCategory) + "$", Options: "i"}
	}
	return query
}

type studentDocument struct {
	ID        string    `bson:"_id"`
	FullName  string    `bson:"full_name"`
	Email     string    `bson:"email"`
	Phone     string    `bson:"phone"`
	Active    bool      `bson:"active"`
	CreatedAt time.Time `bson:"created_at"`
	UpdatedAt time.Time `bson:"updated_at"`
}

func (d *studentDocument) model() *models.Student {
	return &models.Student{
		ID:        d.ID,
		FullName:  d.FullName,
		Email:     d.Email,
		Phone:     d.Phone,
		Active:    d.Active,
		CreatedAt: d.CreatedAt.UTC(),
		UpdatedAt: d.UpdatedAt.UTC(),
	}
}

func newStudentDocument(s *models.Student) *studentDocument {
	return &studentDocument{
		ID:        s.ID,
		FullName:  s.FullName,
		Email:     s.Email,
		Phone:     s.Phone,
		Active:    s.Active,
		CreatedAt: s.CreatedAt,
		UpdatedAt: s.UpdatedAt,
	}
}

// MongoStudentRepository persists students in MongoDB.
type MongoStudentRepository struct {
	coll *mongo.Collection
}

// NewMongoStudentRepository constructs the repository over db.students.
func NewMongoStudentRepository(db *mongo.Database) *MongoStudentRepository {
	return &MongoStudentRepository{coll: db.Collection(StudentsCollection)}
}

// EnsureIndexes creates the unique email index.
func (r *MongoStudentRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("create student indexes: %w", err)
	}
	return nil
}

// GetByID fetches a student by id.
func (r *MongoStudentRepository) GetByID(ctx context.Context, id string) (*models.Student, error) {
	var doc studentDocument
	if err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&doc); err != nil {
		return nil, fmt.Errorf("get student: %w", translateMongo(err))
	}
	return doc.model(), nil
}

// List returns students matching the filter ordered by name.
func (r *MongoStudentRepository) List(ctx context.Context, filter models.StudentFilter) ([]models.Student, error) {
	cursor, err := r.coll.Find(ctx, studentQuery(filter), options.Find().SetSort(bson.D{{Key: "full_name", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("list students: %w", err)
	}
	var docs []studentDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode students: %w", err)
	}
	students := make([]models.Student, 0, len(docs))
	for i := range docs {
		students = append(students, *docs[i].model())
	}
	return students, nil
}

// Count returns the number of students matching the filter.
func (r *MongoStudentRepository) Count(ctx context.Context, filter models.StudentFilter) (int, error) {
	total, err := r.coll.CountDocuments(ctx, studentQuery(filter))
	if err != nil {
		return 0, fmt.Errorf("count students: %w", err)
	}
	return int(total), nil
}

// Create inserts a new student.
func (r *MongoStudentRepository) Create(ctx context.Context, student *models.Student) error {
	if student.ID == "" {
		student.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if student.CreatedAt.IsZero() {
		student.CreatedAt = now
	}
	student.UpdatedAt = now
	if _, err := r.coll.InsertOne(ctx, newStudentDocument(student)); err != nil {
		return fmt.Errorf("create student: %w", translateMongo(err))
	}
	return nil
}

// Update replaces the student document.
func (r *MongoStudentRepository) Update(ctx context.Context, student *models.Student) error {
	student.UpdatedAt = time.Now().UTC()
	result, err := r.coll.ReplaceOne(ctx, bson.M{"_id": student.ID}, newStudentDocument(student))
	if err != nil {
		return fmt.Errorf("update student: %w", translateMongo(err))
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("update student %s: %w", student.ID, ErrNotFound)
	}
	return nil
}

func studentQuery(filter models.StudentFilter) bson.M {
	query := bson.M{}
	if filter.Active != nil {
		query["active"] = *filter.Active
	}
	return query
}

func translateMongo(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, mongo.ErrNoDocuments) {
		return ErrNotFound
	}
	if mongo.IsDuplicateKeyError(err) {
		return ErrDuplicate
	}
	return err
}
