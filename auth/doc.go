// Copyright 2025 Poiesic Systems
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

// Package auth manages the Google OAuth credential used to read Colab notebooks
// from Drive.
//
// The credential is a JSON token file. Authorize creates it with a browser
// consent flow that redirects to a loopback callback server. TokenSource reads
// it back and rewrites the file whenever the access token is refreshed, so a
// long-lived refresh token keeps working across runs.
package auth
