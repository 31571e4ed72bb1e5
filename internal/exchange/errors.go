package exchange

import (
	"errors"
	"fmt"
)

// APIError: биржа ответила не-2xx или кодом, отличным от successCode.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("kucoin api error: status=%d code=%s msg=%s", e.Status, e.Code, e.Message)
}

// RequestError: транспорт или невалидный JSON.
type RequestError struct {
	Op  string
	Err error
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("kucoin request error: %s: %v", e.Op, e.Err)
}

func (e *RequestError) Unwrap() error { return e.Err }

// Fatal: ошибка ключей или аккаунта, повтор не поможет.
func (e *APIError) Fatal() bool { return fatalCodes[e.Code] }

// коды, с которыми бот дальше работать не сможет без вмешательства оператора
var fatalCodes = map[string]bool{
	"400003": true, // KC-API-KEY not exists
	"400004": true, // KC-API-PASSPHRASE error
	"400005": true, // signature error
	"411100": true, // user is frozen
}

func IsFatal(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Fatal()
}
