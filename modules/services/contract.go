// Copyright 2025 Nhat-Nguyen Nguyen
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package services

import (
	"net/http"

	"datingapp/modules/middleware"
	"datingapp/modules/server"

	"github.com/getkin/kin-openapi/openapi3"
)

var _ server.RegistrableService = (*ContractService)(nil)

// ContractService registers no routes. It contributes the OpenAPI request
// validator, which runs after every global middleware.
type ContractService struct {
	doc *openapi3.T
}

func NewContractService(doc *openapi3.T) *ContractService {
	return &ContractService{doc: doc}
}

func (s *ContractService) Register(*http.ServeMux) {}

func (s *ContractService) Middlewares() []func(http.Handler) http.Handler {
	return []func(http.Handler) http.Handler{
		middleware.OpenAPIValidation(s.doc),
	}
}
