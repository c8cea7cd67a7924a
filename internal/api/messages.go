package api

// User-facing texts. The site is Russian-only.
const (
	msgInvalidData         = "Некорректные данные."
	msgInvalidCredentials  = "Неверный email или пароль."
	msgLoginSuccess        = "Вход выполнен успешно"
	msgLoginFailed         = "Произошла ошибка при входе."
	msgTokenCreateFailed   = "Не удалось создать токен."
	msgTokenCreateRetry    = "Ошибка аутентификации. Попробуйте снова."
	msgRegisterSuccess     = "Регистрация успешна."
	msgRegisterFailed      = "Произошла ошибка при регистрации."
	msgRegisteredNoToken   = "Пользователь создан, но не удалось создать токен."
	msgTryLogin            = "Попробуйте войти в систему."
	msgUnexpected          = "Произошла непредвиденная ошибка."
	msgLogoutSuccess       = "Выход выполнен успешно"
	msgLogoutFailed        = "Не удалось выйти из системы."
	msgLogoutError         = "Ошибка при выходе."
	msgRefreshSuccess      = "Токен обновлён"
	msgRefreshFailed       = "Не удалось обновить токен."
	msgLoginAgain          = "Войдите в систему заново."
	msgUnauthenticated     = "Пользователь не аутентифицирован."
	msgUserFetchFailed     = "Ошибка при получении данных пользователя."
	msgGenericError        = "Произошла ошибка."
	msgForgotPassword      = "Если email существует, на него будет отправлена ссылка для сброса пароля."
	msgInvalidEmail        = "Некорректный email."
	msgInvalidToken        = "Недействительный токен."
	msgInvalidOrExpired    = "Недействительный или истекший токен."
	msgUserNotFound        = "Пользователь не найден."
	msgPasswordChanged     = "Пароль успешно изменён."
	msgResetFailed         = "Произошла ошибка при сбросе пароля."
	msgNotificationSent    = "Уведомление отправлено."
	msgNotificationFailed  = "Не удалось отправить уведомление."
	msgNotificationError   = "Произошла ошибка при отправке."
	msgTooManyRequests     = "Слишком много запросов."
	msgTooManyRequestsWait = "Слишком много попыток. Повторите позже."
	msgNotFound            = "Ресурс не найден."
	msgMethodNotAllowed    = "Метод не поддерживается."
)
