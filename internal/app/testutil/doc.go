// Package testutil provides shared test helpers for the smart audio backend.
//
// It contains:
//
//   - testify mocks for the model clients and the audio tool (mock_services.go)
//   - job and segment fixtures plus file helpers (fixtures.go)
//   - record store setup for every backend (db_helpers.go)
//
// # Usage
//
//	func TestDiarization(t *testing.T) {
//	    diarizer := testutil.NewMockDiarizer(t)
//	    diarizer.On("Diarize", mock.Anything, mock.Anything).Return(testutil.SampleTurns(), nil)
//	    ...
//	}
//
//	func TestStore(t *testing.T) {
//	    for _, kind := range testutil.StoreKinds() {
//	        store := testutil.SetupRecordStore(t, kind)
//	        testutil.SeedRecords(t, store, testutil.SampleRecord("a"))
//	    }
//	}
//
// Postgres backed tests run only when POSTGRES_TEST_URL is set.
package testutil
