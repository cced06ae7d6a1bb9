// Copyright © 2024 Kaleido, Inc.
//
// SPDX-License-Identifier: Apache-2.0
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

package tlsconf

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"os"
	"regexp"
	"strings"

	"github.com/PolymeshAssociation/polymesh-sdk-sub000/internal/msgs"
	"github.com/PolymeshAssociation/polymesh-sdk-sub000/pkg/log"
	"github.com/PolymeshAssociation/polymesh-sdk-sub000/pkg/pmconf"
	"github.com/hyperledger/firefly-common/pkg/i18n"
)

// BuildClientTLSConfig returns nil when TLS is disabled
func BuildClientTLSConfig(ctx context.Context, config *pmconf.TLSConfig) (*tls.Config, error) {
	if !config.Enabled {
		return nil, nil
	}

	tlsConfig := &tls.Config{
		MinVersion:         tls.VersionTLS12,
		InsecureSkipVerify: config.InsecureSkipHostVerify,
	}

	rootCAs, err := loadRootCAs(ctx, config)
	if err != nil {
		return nil, i18n.WrapError(ctx, err, msgs.MsgTLSConfigFailed)
	}
	tlsConfig.RootCAs = rootCAs

	// mTLS to nodes that require client certificates
	var cert *tls.Certificate
	if config.CertFile != "" && config.KeyFile != "" {
		c, err := tls.LoadX509KeyPair(config.CertFile, config.KeyFile)
		if err != nil {
			return nil, i18n.WrapError(ctx, err, msgs.MsgTLSInvalidKeyPairFiles)
		}
		cert = &c
	} else if config.Cert != "" && config.Key != "" {
		c, err := tls.X509KeyPair([]byte(config.Cert), []byte(config.Key))
		if err != nil {
			return nil, i18n.WrapError(ctx, err, msgs.MsgTLSInvalidKeyPairFiles)
		}
		cert = &c
	}
	if cert != nil {
		tlsConfig.GetClientCertificate = func(cri *tls.CertificateRequestInfo) (*tls.Certificate, error) {
			log.L(ctx).Debugf("Supplying client certificate")
			return cert, nil
		}
	}

	if len(config.RequiredDNAttributes) > 0 {
		if tlsConfig.VerifyPeerCertificate, err = buildDNValidator(ctx, config.RequiredDNAttributes); err != nil {
			return nil, err
		}
	}

	return tlsConfig, nil
}

func loadRootCAs(ctx context.Context, config *pmconf.TLSConfig) (*x509.CertPool, error) {
	switch {
	case config.CAFile != "":
		caBytes, err := os.ReadFile(config.CAFile)
		if err != nil {
			return nil, err
		}
		return appendPEM(ctx, caBytes)
	case config.CA != "":
		return appendPEM(ctx, []byte(config.CA))
	default:
		return x509.SystemCertPool()
	}
}

func appendPEM(ctx context.Context, pemBytes []byte) (*x509.CertPool, error) {
	rootCAs := x509.NewCertPool()
	if !rootCAs.AppendCertsFromPEM(pemBytes) {
		return nil, i18n.NewError(ctx, msgs.MsgTLSInvalidCAFile)
	}
	return rootCAs, nil
}

var SubjectDNKnownAttributes = map[string]func(pkix.Name) []string{
	"C":  func(n pkix.Name) []string { return n.Country },
	"O":  func(n pkix.Name) []string { return n.Organization },
	"OU": func(n pkix.Name) []string { return n.OrganizationalUnit },
	"CN": func(n pkix.Name) []string {
		if n.CommonName == "" {
			return []string{}
		}
		return []string{n.CommonName}
	},
	"SERIALNUMBER": func(n pkix.Name) []string {
		if n.SerialNumber == "" {
			return []string{}
		}
		return []string{n.SerialNumber}
	},
	"L":          func(n pkix.Name) []string { return n.Locality },
	"ST":         func(n pkix.Name) []string { return n.Province },
	"STREET":     func(n pkix.Name) []string { return n.StreetAddress },
	"POSTALCODE": func(n pkix.Name) []string { return n.PostalCode },
}

func buildDNValidator(ctx context.Context, requiredDNAttributes map[string]string) (func(rawCerts [][]byte, verifiedChains [][]*x509.Certificate) error, error) {

	validators := make(map[string]*regexp.Regexp)
	for attr, validatorString := range requiredDNAttributes {
		attr = strings.ToUpper(attr)
		if _, knownAttr := SubjectDNKnownAttributes[attr]; !knownAttr {
			return nil, i18n.NewError(ctx, msgs.MsgTLSInvalidDNMatcherAttr, attr)
		}
		// full string match
		validatorString = "^" + strings.TrimSuffix(strings.TrimPrefix(validatorString, "^"), "$") + "$"
		validator, err := regexp.Compile(validatorString)
		if err != nil {
			return nil, i18n.NewError(ctx, msgs.MsgTLSInvalidDNMatcherRegexp, validatorString, attr, err)
		}
		validators[attr] = validator
	}
	return func(_ [][]byte, verifiedChains [][]*x509.Certificate) error {
		if len(verifiedChains) == 0 {
			log.L(ctx).Errorf("Failed TLS DN check: Nil cert chain")
			return i18n.NewError(ctx, msgs.MsgTLSInvalidDNChain)
		}
		for iChain, chain := range verifiedChains {
			if len(chain) == 0 {
				log.L(ctx).Errorf("Failed TLS DN check: Empty cert chain %d", iChain)
				return i18n.NewError(ctx, msgs.MsgTLSInvalidDNChain)
			}
			// leaf only
			cert := chain[0]
			for attr, validator := range validators {
				matched := false
				for _, value := range SubjectDNKnownAttributes[attr](cert.Subject) {
					matched = matched || validator.MatchString(value)
				}
				if !matched {
					log.L(ctx).Errorf("Failed TLS DN check: Does not match %s =~ /%s/", attr, validator.String())
					return i18n.NewError(ctx, msgs.MsgTLSDNMismatch)
				}
			}
		}
		return nil
	}, nil
}
