package controllers_test

import (
	"testing"

	"github.com/gin-gonic/gin/binding"
	"github.com/stretchr/testify/require"

	"github.com/berprestasi/lomba-api/controllers"
)

func TestRegisterValidators(t *testing.T) {
	require.NotPanics(t, controllers.RegisterValidators)
	require.NotPanics(t, controllers.RegisterValidators)

	type form struct {
		Link string `binding:"omitempty,weblink"`
	}
	require.NoError(t, binding.Validator.ValidateStruct(form{}))
	require.NoError(t, binding.Validator.ValidateStruct(form{Link: "lomba.id/daftar"}))
	require.Error(t, binding.Validator.ValidateStruct(form{Link: "not a link"}))
}
