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

	"datingapp/modules/server"
)

var _ server.RegistrableService = (*ImageService)(nil)

// ImageService serves stored photo files under /images/.
type ImageService struct {
	files http.Handler
}

// NewImageService mounts files, which is expected to resolve paths relative to /images/.
func NewImageService(files http.Handler) *ImageService {
	return &ImageService{files: files}
}

func (s *ImageService) Register(mux *http.ServeMux) {
	mux.Handle("GET /images/{name}", s.files)
}

func (s *ImageService) Middlewares() []func(http.Handler) http.Handler {
	return nil
}
