package services

// ServiceContainer holds instances of all the application services.
// It is the entry point the console handler uses to reach service functionality.
type ServiceContainer struct {
	ATM ATMSvc
}
