// Copyright 2023 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package queue

//go:generate mockgen -destination=mocks_test.go -package=$GOPACKAGE github.com/ChainSafe/blockimport/internal/client/consensus BlockImport,JustificationImport,Link,Verifier
