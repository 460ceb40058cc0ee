/*
	Copyright NetFoundry Inc.

	Licensed under the Apache License, Version 2.0 (the "License");
	you may not use this file except in compliance with the License.
	You may obtain a copy of the License at

	https://www.apache.org/licenses/LICENSE-2.0

	Unless required by applicable law or agreed to in writing, software
	distributed under the License is distributed on an "AS IS" BASIS,
	WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
	See the License for the specific language governing permissions and
	limitations under the License.
*/

package xmodule

import (
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/securecookie"
	"github.com/michaelquigley/pfxlog"
	"github.com/pkg/errors"
)

// TempData holds values that survive exactly until they are read in a later request. Each module invocation gets its
// own TempData; it is never shared with the page or with other modules.
type TempData struct {
	values map[string]interface{}
	read   map[string]bool
	kept   map[string]bool
}

// NewTempData creates TempData seeded with values loaded from a TempDataProvider.
func NewTempData(values map[string]interface{}) *TempData {
	if values == nil {
		values = map[string]interface{}{}
	}
	return &TempData{
		values: values,
		read:   map[string]bool{},
		kept:   map[string]bool{},
	}
}

// Get returns a value and marks it for removal at the end of the request.
func (tempData *TempData) Get(key string) (interface{}, bool) {
	value, ok := tempData.values[key]
	if ok {
		tempData.read[key] = true
	}
	return value, ok
}

// Peek returns a value without marking it read.
func (tempData *TempData) Peek(key string) (interface{}, bool) {
	value, ok := tempData.values[key]
	return value, ok
}

// Set stores a value for the next request.
func (tempData *TempData) Set(key string, value interface{}) {
	tempData.values[key] = value
	delete(tempData.read, key)
}

// Keep retains a read value for another request.
func (tempData *TempData) Keep(key string) {
	tempData.kept[key] = true
}

// Len returns the number of values currently held.
func (tempData *TempData) Len() int {
	return len(tempData.values)
}

// retained returns the values that must be persisted: everything not read, or read and kept.
func (tempData *TempData) retained() map[string]interface{} {
	result := map[string]interface{}{}
	for key, value := range tempData.values {
		if tempData.read[key] && !tempData.kept[key] {
			continue
		}
		result[key] = value
	}
	return result
}

// TempDataProvider loads and saves the TempData of a handler.
type TempDataProvider interface {
	LoadTempData(handlerContext *HandlerContext) (map[string]interface{}, error)
	SaveTempData(handlerContext *HandlerContext, values map[string]interface{}) error
}

const TempDataCookiePrefix = "xmodule_td_"

// TempDataMaxAge bounds how long a saved temp data cookie is accepted.
const TempDataMaxAge = 24 * time.Hour

// CookieTempDataProvider persists module TempData in a signed cookie named after the module and its page position, so
// two modules (or two placements of the same module) never see each other's values. The signature covers the cookie
// name, so a value cannot be replayed under another module's cookie. Saved cookies are written to the module response
// headers; the host page decides whether to forward them.
type CookieTempDataProvider struct {
	Secure bool

	codec *securecookie.SecureCookie
}

var _ TempDataProvider = &CookieTempDataProvider{}

// NewCookieTempDataProvider creates a provider signing its cookies with hashKey. An empty hashKey generates a random
// key, so cookies do not survive a restart or other processes of the same site.
func NewCookieTempDataProvider(hashKey []byte, secure bool) *CookieTempDataProvider {
	if len(hashKey) == 0 {
		pfxlog.Logger().Warn("no xmodule temp data key configured, using a random key")
		hashKey = securecookie.GenerateRandomKey(64)
	}

	codec := securecookie.New(hashKey, nil)
	codec.SetSerializer(securecookie.JSONEncoder{})
	codec.MaxAge(int(TempDataMaxAge.Seconds()))

	return &CookieTempDataProvider{
		Secure: secure,
		codec:  codec,
	}
}

// TempDataCookieName returns the cookie used for a module placement.
func TempDataCookieName(moduleName, positionId string) string {
	return TempDataCookiePrefix + cookieToken(moduleName) + "_" + cookieToken(positionId)
}

func (provider *CookieTempDataProvider) LoadTempData(handlerContext *HandlerContext) (map[string]interface{}, error) {
	if provider.codec == nil {
		return nil, nil
	}

	name := TempDataCookieName(handlerContext.Module.ModuleName, handlerContext.Module.PositionId())
	cookie, err := handlerContext.Http.Request.Cookie(name)
	if err != nil || cookie == nil || strings.TrimSpace(cookie.Value) == "" {
		return nil, nil
	}

	values := map[string]interface{}{}
	if err = provider.codec.Decode(name, strings.TrimSpace(cookie.Value), &values); err != nil {
		// rejected temp data is dropped, the cookie gets cleared on save
		pfxlog.Logger().WithField("cookie", name).WithError(err).Debug("rejecting module temp data")
		return nil, nil
	}

	return values, nil
}

func (provider *CookieTempDataProvider) SaveTempData(handlerContext *HandlerContext, values map[string]interface{}) error {
	name := TempDataCookieName(handlerContext.Module.ModuleName, handlerContext.Module.PositionId())

	if len(values) == 0 {
		if _, err := handlerContext.Http.Request.Cookie(name); err == nil {
			http.SetCookie(handlerContext.Http.Response, &http.Cookie{
				Name:     name,
				Value:    "",
				Path:     "/",
				HttpOnly: true,
				Secure:   provider.Secure,
				SameSite: http.SameSiteLaxMode,
				MaxAge:   -1,
			})
		}
		return nil
	}

	if provider.codec == nil {
		return errors.Errorf("cannot save temp data for module [%s], no signing key", handlerContext.Module.ModuleName)
	}

	encoded, err := provider.codec.Encode(name, values)
	if err != nil {
		return errors.Wrapf(err, "could not encode temp data for module [%s]", handlerContext.Module.ModuleName)
	}

	http.SetCookie(handlerContext.Http.Response, &http.Cookie{
		Name:     name,
		Value:    encoded,
		Path:     "/",
		HttpOnly: true,
		Secure:   provider.Secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(TempDataMaxAge.Seconds()),
	})

	return nil
}

func cookieToken(value string) string {
	var builder strings.Builder
	for _, r := range value {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-':
			builder.WriteRune(r)
		default:
			builder.WriteRune('_')
		}
	}
	return builder.String()
}
