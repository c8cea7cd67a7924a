package notify

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/novostroy/novostroy-api/internal/logger"
	"github.com/novostroy/novostroy-api/internal/mail"
	"github.com/novostroy/novostroy-api/internal/models"
	"github.com/novostroy/novostroy-api/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockSender struct {
	mock.Mock
}

func (m *mockSender) Send(ctx context.Context, msg mail.Message) error {
	return m.Called(ctx, msg).Error(0)
}

type mockArchiver struct {
	mock.Mock
}

func (m *mockArchiver) ArchiveHTML(ctx context.Context, name, html string) (*storage.UploadResult, error) {
	args := m.Called(ctx, name, html)
	res, _ := args.Get(0).(*storage.UploadResult)
	return res, args.Error(1)
}

func newTestService(sender mail.Sender, archiver Archiver) *Service {
	moscow := time.FixedZone("MSK", 3*60*60)
	s := NewService(sender, archiver, Config{
		AdminEmail: "admin@novostroy.ru",
		From:       "noreply@novostroy.org",
		Location:   moscow,
	}, logger.Nop())
	s.now = func() time.Time { return time.Date(2024, 5, 1, 9, 4, 5, 0, time.UTC) }
	return s
}

func strPtr(s string) *string { return &s }

func TestCompose(t *testing.T) {
	s := newTestService(nil, nil)

	msg, err := s.Compose(models.ServiceRequest{
		ServiceType: models.ServiceDesignProject,
		Name:        "Мария",
		Phone:       "+7 900 000-00-00",
		Message:     strPtr("Квартира 80 м²"),
	})
	require.NoError(t, err)

	assert.Equal(t, "admin@novostroy.ru", msg.To)
	assert.Equal(t, "noreply@novostroy.org", msg.From)
	assert.Equal(t, "Новая заявка: Дизайн-проект интерьера", msg.Subject)
	assert.Contains(t, msg.HTML, "01.05.2024 12:04:05")
	assert.Contains(t, msg.HTML, "Квартира 80 м²")
	assert.Contains(t, msg.HTML, mail.NotSpecified, "missing source url")
}

func TestCompose_EmptyOptionalFields(t *testing.T) {
	s := newTestService(nil, nil)

	msg, err := s.Compose(models.ServiceRequest{
		ServiceType: models.ServiceAssembly,
		Name:        "Пётр",
		Phone:       "89000000000",
		Message:     strPtr(""),
	})
	require.NoError(t, err)
	assert.NotContains(t, msg.HTML, "Сообщение от клиента")
}

func TestSend(t *testing.T) {
	sender := new(mockSender)
	archiver := new(mockArchiver)
	s := newTestService(sender, archiver)

	sender.On("Send", mock.Anything, mock.MatchedBy(func(m mail.Message) bool {
		return m.Subject == "Новая заявка: Замер помещения" && m.To == "admin@novostroy.ru"
	})).Return(nil).Once()
	archiver.On("ArchiveHTML", mock.Anything, "measurement", mock.AnythingOfType("string")).
		Return(&storage.UploadResult{Key: "k"}, nil).Once()

	err := s.Send(context.Background(), models.ServiceRequest{
		ServiceType: models.ServiceMeasurement,
		Name:        "Анна",
		Phone:       "+79001234567",
	})
	require.NoError(t, err)
	sender.AssertExpectations(t)
	archiver.AssertExpectations(t)
}

func TestSend_MailFailureSkipsArchive(t *testing.T) {
	sender := new(mockSender)
	archiver := new(mockArchiver)
	s := newTestService(sender, archiver)

	sender.On("Send", mock.Anything, mock.Anything).Return(errors.New("connection refused"))

	err := s.Send(context.Background(), models.ServiceRequest{ServiceType: models.ServiceConsultation, Name: "A", Phone: "1"})
	assert.Error(t, err)
	archiver.AssertNotCalled(t, "ArchiveHTML", mock.Anything, mock.Anything, mock.Anything)
}

func TestSend_ArchiveFailureIsNotFatal(t *testing.T) {
	sender := new(mockSender)
	archiver := new(mockArchiver)
	s := newTestService(sender, archiver)

	sender.On("Send", mock.Anything, mock.Anything).Return(nil)
	archiver.On("ArchiveHTML", mock.Anything, mock.Anything, mock.Anything).Return(nil, errors.New("bucket missing"))

	err := s.Send(context.Background(), models.ServiceRequest{ServiceType: models.ServiceConsultation, Name: "A", Phone: "1"})
	assert.NoError(t, err)
}

func TestSend_ArchiveIsBoundedButOutlivesRequest(t *testing.T) {
	sender := new(mockSender)
	archiver := new(mockArchiver)
	s := NewService(sender, archiver, Config{
		AdminEmail:     "admin@novostroy.ru",
		From:           "noreply@novostroy.org",
		ArchiveTimeout: time.Minute,
	}, logger.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	sender.On("Send", mock.Anything, mock.Anything).Run(func(mock.Arguments) { cancel() }).Return(nil)

	var archiveCtx context.Context
	archiver.On("ArchiveHTML", mock.Anything, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			archiveCtx = args.Get(0).(context.Context)
			assert.NoError(t, archiveCtx.Err(), "client disconnect cancels the archive upload")
		}).
		Return(&storage.UploadResult{Key: "k"}, nil).Once()

	start := time.Now()
	err := s.Send(ctx, models.ServiceRequest{ServiceType: models.ServiceConsultation, Name: "A", Phone: "1"})
	require.NoError(t, err)
	archiver.AssertExpectations(t)

	deadline, ok := archiveCtx.Deadline()
	require.True(t, ok, "archive upload has no deadline")
	assert.WithinDuration(t, start.Add(time.Minute), deadline, 5*time.Second)
}

func TestNewService_DefaultArchiveTimeout(t *testing.T) {
	s := NewService(new(mockSender), nil, Config{}, logger.Nop())
	assert.Equal(t, DefaultArchiveTimeout, s.cfg.ArchiveTimeout)
}
