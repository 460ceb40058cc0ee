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
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newResultContext() *HandlerContext {
	return &HandlerContext{
		ActionName: "index",
		Http:       &ModuleHttpContext{Response: NewModuleResponse()},
	}
}

func Test_ActionResults(t *testing.T) {

	t.Run("content", func(t *testing.T) {
		handlerContext := newResultContext()
		result := Content("<b>hi</b>")
		result.ContentType = "text/html"

		req := require.New(t)
		req.NoError(result.ExecuteResult(context.Background(), handlerContext))
		req.Equal("<b>hi</b>", handlerContext.Http.Response.Output())
		req.Equal("text/html", handlerContext.Http.Response.Header().Get("Content-Type"))
	})

	t.Run("json", func(t *testing.T) {
		handlerContext := newResultContext()

		req := require.New(t)
		req.NoError(Json(map[string]int{"count": 2}).ExecuteResult(context.Background(), handlerContext))
		req.JSONEq(`{"count":2}`, handlerContext.Http.Response.Output())
		req.Equal("application/json", handlerContext.Http.Response.Header().Get("Content-Type"))
	})

	t.Run("json that cannot be encoded", func(t *testing.T) {
		require.Error(t, Json(make(chan int)).ExecuteResult(context.Background(), newResultContext()))
	})

	t.Run("redirect", func(t *testing.T) {
		handlerContext := newResultContext()

		req := require.New(t)
		req.NoError(Redirect("/thanks").ExecuteResult(context.Background(), handlerContext))
		req.Equal(http.StatusFound, handlerContext.Http.Response.StatusCode())
		req.Equal("/thanks", handlerContext.Http.Response.RedirectLocation())

		permanent := newResultContext()
		req.NoError((&RedirectResult{Url: "/moved", Permanent: true}).ExecuteResult(context.Background(), permanent))
		req.Equal(http.StatusMovedPermanently, permanent.Http.Response.StatusCode())

		req.Error(Redirect("").ExecuteResult(context.Background(), newResultContext()))
	})

	t.Run("status", func(t *testing.T) {
		handlerContext := newResultContext()

		req := require.New(t)
		req.NoError(Status(http.StatusNoContent).ExecuteResult(context.Background(), handlerContext))
		req.Equal(http.StatusNoContent, handlerContext.Http.Response.StatusCode())
		req.Empty(handlerContext.Http.Response.Output())
	})

	t.Run("a view without component", func(t *testing.T) {
		require.Error(t, (&ViewResult{}).ExecuteResult(context.Background(), newResultContext()))
	})
}

func Test_Classify(t *testing.T) {
	req := require.New(t)
	req.Equal(HandlerNotFound, Classify(&HandlerNotFoundError{Handler: "Missing"}))
	req.Equal(UnknownAction, Classify(&UnknownActionError{Action: "absent"}))
	req.Equal(ModuleInvocationFailure, Classify(newInvocationError("Banner", PhaseInvoke, context.Canceled)))
	req.Equal(ModuleInvocationFailure, Classify(context.DeadlineExceeded))
	req.Equal("HandlerNotFound", HandlerNotFound.String())
	req.Equal("UnknownAction", UnknownAction.String())
	req.Equal("ModuleInvocationFailure", ModuleInvocationFailure.String())

	wrapped := newInvocationError("Banner", PhaseExecute, &UnknownActionError{Action: "absent"})
	req.Equal(UnknownAction, Classify(wrapped))
	req.ErrorIs(newInvocationError("Banner", PhaseInvoke, context.Canceled), context.Canceled)
}

func Test_Collector(t *testing.T) {

	t.Run("a nil collector records nothing", func(t *testing.T) {
		var collector *Collector
		require.NotPanics(t, func() {
			collector.RecordPhase("Banner", PhaseInvoke, ResultOk, time.Millisecond)
		})
		require.Nil(t, collector.Registry())
	})

	t.Run("phases are counted and timed", func(t *testing.T) {
		collector := NewCollector("")
		collector.RecordPhase("Banner", PhaseInvoke, ResultOk, time.Millisecond)
		collector.RecordPhase("Banner", PhaseInvoke, ResultOk, time.Millisecond)
		collector.RecordPhase("Banner", PhaseExecute, ResultFailed, time.Millisecond)

		families, err := collector.Registry().Gather()
		req := require.New(t)
		req.NoError(err)

		names := map[string]bool{}
		for _, family := range families {
			names[family.GetName()] = true
		}
		req.True(names["xmodule_module_invocations_total"])
		req.True(names["xmodule_module_phase_duration_seconds"])
	})
}
