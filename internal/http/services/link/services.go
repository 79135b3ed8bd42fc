package link

// Services groups the account-linking domain services.
type Services struct {
	Callback CallbackService
	Start    StartService
	Accounts AccountsService
}
