package router

import "pharma-backoffice/internal/domain"

func domainInput(email string) domain.UserInput {
	return domain.UserInput{Name: "Op", Email: email, Role: domain.RoleCustomer}
}
