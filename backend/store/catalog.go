package store

import (
	"context"
	"strings"

	"learnhub/backend/models"
	"learnhub/backend/utils"

	"gorm.io/gorm"
)

const searchLimit = 20

type SubjectRepo interface {
	List(ctx context.Context, tx *gorm.DB) ([]models.Subject, error)
	Get(ctx context.Context, tx *gorm.DB, id uint) (*models.Subject, error)
	GetByIDs(ctx context.Context, tx *gorm.DB, ids []uint) ([]models.Subject, error)
	Create(ctx context.Context, tx *gorm.DB, subject *models.Subject) error
	Search(ctx context.Context, tx *gorm.DB, query string) ([]models.Subject, error)
}

type subjectRepo struct {
	db  *gorm.DB
	log *utils.Logger
}

func NewSubjectRepo(db *gorm.DB, baseLog *utils.Logger) SubjectRepo {
	return &subjectRepo{db: db, log: baseLog.With("repo", "SubjectRepo")}
}

func (r *subjectRepo) List(ctx context.Context, tx *gorm.DB) ([]models.Subject, error) {
	var subjects []models.Subject
	err := pick(r.db, tx).WithContext(ctx).Order("name ASC, id ASC").Find(&subjects).Error
	return subjects, wrap(err, "subjects.List")
}

func (r *subjectRepo) Get(ctx context.Context, tx *gorm.DB, id uint) (*models.Subject, error) {
	var subject models.Subject
	if err := pick(r.db, tx).WithContext(ctx).First(&subject, id).Error; err != nil {
		return nil, wrap(err, "subjects.Get")
	}
	return &subject, nil
}

func (r *subjectRepo) GetByIDs(ctx context.Context, tx *gorm.DB, ids []uint) ([]models.Subject, error) {
	var subjects []models.Subject
	if len(ids) == 0 {
		return subjects, nil
	}
	err := pick(r.db, tx).WithContext(ctx).Where("id IN ?", ids).Find(&subjects).Error
	return subjects, wrap(err, "subjects.GetByIDs")
}

func (r *subjectRepo) Create(ctx context.Context, tx *gorm.DB, subject *models.Subject) error {
	return wrap(pick(r.db, tx).WithContext(ctx).Create(subject).Error, "subjects.Create")
}

func (r *subjectRepo) Search(ctx context.Context, tx *gorm.DB, query string) ([]models.Subject, error) {
	var subjects []models.Subject
	err := pick(r.db, tx).WithContext(ctx).
		Where("LOWER(name) LIKE ?", likePattern(query)).
		Order("name ASC").
		Limit(searchLimit).
		Find(&subjects).Error
	return subjects, wrap(err, "subjects.Search")
}

type TopicRepo interface {
	// ListBySubject returns the subject's topics in curriculum order.
	ListBySubject(ctx context.Context, tx *gorm.DB, subjectID uint) ([]models.Topic, error)
	ListBySubjectIDs(ctx context.Context, tx *gorm.DB, subjectIDs []uint) ([]models.Topic, error)
	GetByIDs(ctx context.Context, tx *gorm.DB, ids []uint) ([]models.Topic, error)
	Get(ctx context.Context, tx *gorm.DB, id uint) (*models.Topic, error)
	Create(ctx context.Context, tx *gorm.DB, topic *models.Topic) error
	Search(ctx context.Context, tx *gorm.DB, query string) ([]models.Topic, error)
}

type topicRepo struct {
	db  *gorm.DB
	log *utils.Logger
}

func NewTopicRepo(db *gorm.DB, baseLog *utils.Logger) TopicRepo {
	return &topicRepo{db: db, log: baseLog.With("repo", "TopicRepo")}
}

func (r *topicRepo) ListBySubject(ctx context.Context, tx *gorm.DB, subjectID uint) ([]models.Topic, error) {
	var topics []models.Topic
	err := pick(r.db, tx).WithContext(ctx).
		Where("subject_id = ?", subjectID).
		Order("sequence_index ASC, id ASC").
		Find(&topics).Error
	return topics, wrap(err, "topics.ListBySubject")
}

func (r *topicRepo) ListBySubjectIDs(ctx context.Context, tx *gorm.DB, subjectIDs []uint) ([]models.Topic, error) {
	var topics []models.Topic
	if len(subjectIDs) == 0 {
		return topics, nil
	}
	err := pick(r.db, tx).WithContext(ctx).
		Where("subject_id IN ?", subjectIDs).
		Order("subject_id ASC, sequence_index ASC, id ASC").
		Find(&topics).Error
	return topics, wrap(err, "topics.ListBySubjectIDs")
}

func (r *topicRepo) GetByIDs(ctx context.Context, tx *gorm.DB, ids []uint) ([]models.Topic, error) {
	var topics []models.Topic
	if len(ids) == 0 {
		return topics, nil
	}
	err := pick(r.db, tx).WithContext(ctx).Where("id IN ?", ids).Find(&topics).Error
	return topics, wrap(err, "topics.GetByIDs")
}

func (r *topicRepo) Get(ctx context.Context, tx *gorm.DB, id uint) (*models.Topic, error) {
	var topic models.Topic
	if err := pick(r.db, tx).WithContext(ctx).First(&topic, id).Error; err != nil {
		return nil, wrap(err, "topics.Get")
	}
	return &topic, nil
}

func (r *topicRepo) Create(ctx context.Context, tx *gorm.DB, topic *models.Topic) error {
	return wrap(pick(r.db, tx).WithContext(ctx).Create(topic).Error, "topics.Create")
}

func (r *topicRepo) Search(ctx context.Context, tx *gorm.DB, query string) ([]models.Topic, error) {
	var topics []models.Topic
	err := pick(r.db, tx).WithContext(ctx).
		Where("LOWER(title) LIKE ?", likePattern(query)).
		Order("title ASC").
		Limit(searchLimit).
		Find(&topics).Error
	return topics, wrap(err, "topics.Search")
}

// LessonDetail is a lesson joined to its topic and subject, flattened to one scalar row.
type LessonDetail struct {
	LessonID        uint    `json:"lesson_id"`
	LessonTitle     string  `json:"lesson_title"`
	DurationMinutes int     `json:"duration_minutes"`
	TopicID         uint    `json:"topic_id"`
	TopicTitle      string  `json:"topic_title"`
	SubjectID       uint    `json:"subject_id"`
	SubjectName     string  `json:"subject_name"`
	SubjectColor    *string `json:"-"`
	SubjectIcon     *string `json:"-"`
}

// Subject rebuilds the subject row carried by the join.
func (d LessonDetail) Subject() models.Subject {
	return models.Subject{ID: d.SubjectID, Name: d.SubjectName, Color: d.SubjectColor, Icon: d.SubjectIcon}
}

type LessonRepo interface {
	ListByTopic(ctx context.Context, tx *gorm.DB, topicID uint) ([]models.Lesson, error)
	// ListDetailsByTopicIDs returns lessons of the given topics joined to topic and subject,
	// ordered by topic then lesson sequence.
	ListDetailsByTopicIDs(ctx context.Context, tx *gorm.DB, topicIDs []uint) ([]LessonDetail, error)
	// CountByTopicIDs returns topic id -> number of lessons. Topics without lessons are absent.
	CountByTopicIDs(ctx context.Context, tx *gorm.DB, topicIDs []uint) (map[uint]int, error)
	Create(ctx context.Context, tx *gorm.DB, lesson *models.Lesson) error
	Search(ctx context.Context, tx *gorm.DB, query string) ([]models.Lesson, error)
}

type lessonRepo struct {
	db  *gorm.DB
	log *utils.Logger
}

func NewLessonRepo(db *gorm.DB, baseLog *utils.Logger) LessonRepo {
	return &lessonRepo{db: db, log: baseLog.With("repo", "LessonRepo")}
}

func (r *lessonRepo) ListByTopic(ctx context.Context, tx *gorm.DB, topicID uint) ([]models.Lesson, error) {
	var lessons []models.Lesson
	err := pick(r.db, tx).WithContext(ctx).
		Where("topic_id = ?", topicID).
		Order("sequence_index ASC, id ASC").
		Find(&lessons).Error
	return lessons, wrap(err, "lessons.ListByTopic")
}

func (r *lessonRepo) ListDetailsByTopicIDs(ctx context.Context, tx *gorm.DB, topicIDs []uint) ([]LessonDetail, error) {
	var rows []LessonDetail
	if len(topicIDs) == 0 {
		return rows, nil
	}
	err := pick(r.db, tx).WithContext(ctx).
		Table("lessons").
		Select(`lessons.id AS lesson_id, lessons.title AS lesson_title, lessons.duration_minutes AS duration_minutes,
			topics.id AS topic_id, topics.title AS topic_title,
			subjects.id AS subject_id, subjects.name AS subject_name,
			subjects.color AS subject_color, subjects.icon AS subject_icon`).
		Joins("JOIN topics ON topics.id = lessons.topic_id").
		Joins("JOIN subjects ON subjects.id = topics.subject_id").
		Where("lessons.topic_id IN ?", topicIDs).
		Order("lessons.topic_id ASC, lessons.sequence_index ASC, lessons.id ASC").
		Scan(&rows).Error
	return rows, wrap(err, "lessons.ListDetailsByTopicIDs")
}

func (r *lessonRepo) CountByTopicIDs(ctx context.Context, tx *gorm.DB, topicIDs []uint) (map[uint]int, error) {
	counts := make(map[uint]int, len(topicIDs))
	if len(topicIDs) == 0 {
		return counts, nil
	}

	var rows []struct {
		TopicID uint
		Total   int
	}
	err := pick(r.db, tx).WithContext(ctx).
		Model(&models.Lesson{}).
		Select("topic_id, COUNT(*) AS total").
		Where("topic_id IN ?", topicIDs).
		Group("topic_id").
		Scan(&rows).Error
	if err != nil {
		return nil, wrap(err, "lessons.CountByTopicIDs")
	}
	for _, row := range rows {
		counts[row.TopicID] = row.Total
	}
	return counts, nil
}

func (r *lessonRepo) Create(ctx context.Context, tx *gorm.DB, lesson *models.Lesson) error {
	return wrap(pick(r.db, tx).WithContext(ctx).Create(lesson).Error, "lessons.Create")
}

func (r *lessonRepo) Search(ctx context.Context, tx *gorm.DB, query string) ([]models.Lesson, error) {
	var lessons []models.Lesson
	err := pick(r.db, tx).WithContext(ctx).
		Where("LOWER(title) LIKE ?", likePattern(query)).
		Order("title ASC").
		Limit(searchLimit).
		Find(&lessons).Error
	return lessons, wrap(err, "lessons.Search")
}

type QuizRepo interface {
	ListByTopic(ctx context.Context, tx *gorm.DB, topicID uint) ([]models.Quiz, error)
	Create(ctx context.Context, tx *gorm.DB, quiz *models.Quiz) error
}

type quizRepo struct {
	db  *gorm.DB
	log *utils.Logger
}

func NewQuizRepo(db *gorm.DB, baseLog *utils.Logger) QuizRepo {
	return &quizRepo{db: db, log: baseLog.With("repo", "QuizRepo")}
}

func (r *quizRepo) ListByTopic(ctx context.Context, tx *gorm.DB, topicID uint) ([]models.Quiz, error) {
	var quizzes []models.Quiz
	err := pick(r.db, tx).WithContext(ctx).
		Where("topic_id = ?", topicID).
		Order("id ASC").
		Find(&quizzes).Error
	return quizzes, wrap(err, "quizzes.ListByTopic")
}

func (r *quizRepo) Create(ctx context.Context, tx *gorm.DB, quiz *models.Quiz) error {
	return wrap(pick(r.db, tx).WithContext(ctx).Create(quiz).Error, "quizzes.Create")
}

func likePattern(query string) string {
	q := strings.ToLower(strings.TrimSpace(query))
	q = strings.NewReplacer("%", "", "_", "").Replace(q)
	return "%" + q + "%"
}
