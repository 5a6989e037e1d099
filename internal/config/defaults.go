package config

import "time"

// Default values for configuration
const (
	DefaultLogLevel = "info"

	DefaultTelegramMaxMessageLength = 4096 // Telegram's maximum message length
	DefaultTelegramParseMode        = "Markdown"

	DefaultAPITimeout = 60 * time.Second

	DefaultBreakerOpenTimeout = 30 * time.Second

	DefaultService = "alfa_friday"

	DefaultPreferencesBackend = "file"
	DefaultPreferencesPath    = "user_preferences.json"
	DefaultDatabasePath       = "storage.db"

	DefaultSQLMaintenanceSchedule = "0 0 4 * * *" // Daily at 04:00, seconds field included
)

// DefaultServices is the enumerated set of service tags understood by the upstream API.
var DefaultServices = []ServiceConfig{
	{Tag: "alfa_friday", Description: "Проверка текста (Alfa Friday)", Confirmation: "Выбран режим Alfa Friday. Отправьте текст для проверки."},
	{Tag: "static_trainer", Description: "Тренажёр статичных постов", Confirmation: "Выбран тренажёр статичных постов. Отправьте текст для проверки."},
	{Tag: "spoiler_trainer", Description: "Тренажёр спойлеров", Confirmation: "Выбран тренажёр спойлеров. Отправьте текст для проверки."},
	{Tag: "stories_trainer", Description: "Тренажёр сторис", Confirmation: "Выбран тренажёр сторис. Отправьте текст для проверки."},
	{Tag: "final_trainer", Description: "Финальный тренажёр", Confirmation: "Выбран финальный тренажёр. Отправьте текст для проверки."},
	{Tag: "speach_trainer", Description: "Тренажёр речи", Confirmation: "Выбран тренажёр речи. Отправьте текст для проверки."},
}

// DefaultMessages holds the built-in user-facing strings.
var DefaultMessages = MessagesConfig{
	Welcome:    "Привет! Я готов отправлять ваши запросы на сервер и возвращать ответы. Просто напишите ваш запрос, и я обработаю его.",
	Help:       "Отправьте мне текстовое сообщение, и я передам его на обработку API.",
	Processing: "⏳ Обрабатываю запрос...",

	ConnectionFailed: "❌ Не удалось подключиться к серверу API. Попробуйте позже.",
	Timeout:          "⏱️ Сервер API не ответил вовремя. Попробуйте позже.",
	APIError:         "❌ Ошибка API (статус %d).",
	UnknownError:     "❌ Произошла непредвиденная ошибка при обращении к API.",
	PreferenceError:  "❌ Не удалось сохранить выбор сервиса. Попробуйте ещё раз.",

	EmptyResponse:   "Получен пустой ответ от сервера.",
	UnexpectedShape: "Получен ответ в неожиданном формате.",

	ReviewLabel:           "Рецензия:",
	CorrectionLabel:       "Возможное исправление:",
	SingleVariantLabel:    "Возможный вариант:",
	MultipleVariantsLabel: "Возможные варианты:",
}

// defaultConfig returns a Config populated with every default value.
func defaultConfig() *Config {
	services := make([]ServiceConfig, len(DefaultServices))
	copy(services, DefaultServices)

	return &Config{
		Logger: LoggerConfig{Level: DefaultLogLevel},
		Telegram: TelegramConfig{
			MaxMessageLength: DefaultTelegramMaxMessageLength,
			ParseMode:        DefaultTelegramParseMode,
		},
		API: APIConfig{
			Timeout:        DefaultAPITimeout,
			CircuitBreaker: CircuitBreakerConfig{OpenTimeout: DefaultBreakerOpenTimeout},
		},
		Relay: RelayConfig{
			DefaultService: DefaultService,
			Services:       services,
		},
		Preferences: PreferencesConfig{
			Backend: DefaultPreferencesBackend,
			Path:    DefaultPreferencesPath,
		},
		Database: DatabaseConfig{Path: DefaultDatabasePath},
		Scheduler: SchedulerConfig{
			Tasks: map[string]TaskConfig{
				"sql_maintenance": {Enabled: true, Schedule: DefaultSQLMaintenanceSchedule},
			},
		},
		Messages: DefaultMessages,
	}
}
