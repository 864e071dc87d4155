// Package mocks provides shared test doubles for the service and HTTP layers.
//
// MockJWTService and PlainHasher are hand-written fakes driven by function
// fields and canned values; UserStore is a testify mock for tests that need
// to assert on calls or inject store failures:
//
//	tokens := &mocks.MockJWTService{ValidateErr: auth.ErrExpiredToken}
//
//	st := new(mocks.UserStore)
//	st.On("GetByEmail", mock.Anything, "ada@example.com").Return(nil, store.ErrUserNotFound)
package mocks
