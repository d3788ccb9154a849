package services

import "errors"

// Общие ошибки, используемые в разных сервисах и маппинге HTTP.
var (
	// Ресурс не найден
	ErrNotFound            = errors.New("requested resource not found")
	ErrUserNotFound        = errors.New("user not found")
	ErrTournamentNotFound  = errors.New("tournament not found")
	ErrParticipantNotFound = errors.New("participant registration not found")
	ErrMatchNotFound       = errors.New("match not found")

	// Ошибки валидации и бизнес-правил
	ErrValidationFailed           = errors.New("validation failed")
	ErrPasswordTooShort           = errors.New("password is too short")
	ErrPhoneRequired              = errors.New("phone number is required")
	ErrTournamentNameRequired     = errors.New("tournament name is required")
	ErrTournamentInvalidRegDate   = errors.New("tournament registration must close before the start date")
	ErrTournamentInvalidDateRange = errors.New("tournament end date must be after start date")
	ErrRegistrationClosed         = errors.New("tournament registration is closed")
	ErrWithdrawNotAllowed         = errors.New("cannot withdraw after selection")
	ErrInvalidScore               = errors.New("set scores must be non-negative integers")
	ErrInvalidSetNumber           = errors.New("set number out of range")

	// Ошибки движка раундов
	ErrRoundNotFinished       = errors.New("current round has undecided matches")
	ErrTournamentFinished     = errors.New("tournament is already finished")
	ErrNoEligibleParticipants = errors.New("no eligible participants for this round")
	ErrNoApplicants           = errors.New("no applied participants to select from")

	// Ошибки конфликтов
	ErrUserEmailConflict      = errors.New("email address is already in use")
	ErrUserPhoneConflict      = errors.New("phone number is already in use")
	ErrTournamentNameConflict = errors.New("tournament name already exists")
	ErrRegistrationConflict   = errors.New("user is already registered for this tournament")

	// Ошибки аутентификации и авторизации
	ErrAuthenticationFailed = errors.New("authentication failed")
	ErrForbiddenOperation   = errors.New("operation not allowed for the current user")
)
