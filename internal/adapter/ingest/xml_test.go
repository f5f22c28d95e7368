package ingest

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ibrahimkeyboad/payrun/internal/core/domain"
)

const sampleXML = `<?xml version="1.0" encoding="UTF-8"?>
<root>
  <row>
    <Employee>
      <DunkinId>EMP-0001</DunkinId>
      <DunkinBranch>BR-07</DunkinBranch>
      <FirstName>Jane</FirstName>
      <LastName>Doe</LastName>
      <DOB>04-21-1990</DOB>
      <PhoneNumber>+15125550100</PhoneNumber>
    </Employee>
    <Payor>
      <DunkinId>FRN-0001</DunkinId>
      <ABARouting>021000021</ABARouting>
      <AccountNumber>123456789</AccountNumber>
      <Name>Dunkin East LLC</Name>
      <DBA>Dunkin</DBA>
      <EIN>12-3456789</EIN>
      <Address>
        <Line1>99 Elm St</Line1>
        <City>Boston</City>
        <State>MA</State>
        <Zip>02110</Zip>
      </Address>
    </Payor>
    <Payee>
      <PlaidId>ins_116527</PlaidId>
      <LoanAccountNumber>9000001</LoanAccountNumber>
    </Payee>
    <Amount>$1,234.56</Amount>
  </row>
  <row>
    <Employee>
      <DunkinId>EMP-0002</DunkinId>
      <DunkinBranch>BR-07</DunkinBranch>
      <FirstName>John</FirstName>
      <LastName>Smith</LastName>
      <DOB>1988-11-02</DOB>
      <PhoneNumber>+15125550101</PhoneNumber>
    </Employee>
    <Payor>
      <DunkinId>FRN-0001</DunkinId>
      <ABARouting>021000021</ABARouting>
      <AccountNumber>123456789</AccountNumber>
      <Name>Dunkin East LLC</Name>
      <DBA>Dunkin</DBA>
      <EIN>12-3456789</EIN>
      <Address>
        <Line1>99 Elm St</Line1>
        <City>Boston</City>
        <State>MA</State>
        <Zip>02110</Zip>
      </Address>
    </Payor>
    <Payee>
      <PlaidId>ins_116527</PlaidId>
      <LoanAccountNumber>9000002</LoanAccountNumber>
    </Payee>
    <Amount>$88.00</Amount>
  </row>
</root>`

func TestParseBatch(t *testing.T) {
	payments, err := ParseBatch(strings.NewReader(sampleXML))
	require.NoError(t, err)
	require.Len(t, payments, 2)

	first := payments[0]
	assert.Equal(t, "EMP-0001", first.Employee.DunkinID)
	assert.Equal(t, "BR-07", first.Employee.Branch)
	assert.Equal(t, "04-21-1990", first.Employee.DOB, "DOB stays raw until provisioning")
	assert.Equal(t, "FRN-0001", first.Payor.DunkinID)
	assert.Equal(t, "99 Elm St", first.Payor.Address.Line1)
	assert.Equal(t, "ins_116527", first.Payee.PlaidID)
	assert.Equal(t, int64(123456), first.Amount)
	assert.Equal(t, domain.PaymentStatusPending, first.Status)

	assert.Equal(t, int64(8800), payments[1].Amount)
}

func TestParseBatch_Rejections(t *testing.T) {
	tests := []struct {
		name string
		xml  string
	}{
		{name: "not xml", xml: "definitely not xml"},
		{name: "no rows", xml: "<root></root>"},
		{
			name: "missing employee id",
			xml: `<root><row><Employee><FirstName>Jane</FirstName></Employee>
				<Payor><DunkinId>FRN-1</DunkinId></Payor><Amount>$1.00</Amount></row></root>`,
		},
		{
			name: "missing payor id",
			xml: `<root><row><Employee><DunkinId>EMP-1</DunkinId></Employee>
				<Payor></Payor><Amount>$1.00</Amount></row></root>`,
		},
		{
			name: "bad amount",
			xml: `<root><row><Employee><DunkinId>EMP-1</DunkinId></Employee>
				<Payor><DunkinId>FRN-1</DunkinId></Payor><Amount>twelve dollars</Amount></row></root>`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseBatch(strings.NewReader(tt.xml))
			assert.Error(t, err)
		})
	}
}

func TestParseCents(t *testing.T) {
	tests := []struct {
		input   string
		want    int64
		wantErr bool
	}{
		{input: "$23.45", want: 2345},
		{input: "23.45", want: 2345},
		{input: "$1,234.56", want: 123456},
		{input: "$100", want: 10000},
		{input: "$0.5", want: 50},
		{input: " $7.00 ", want: 700},
		{input: "", wantErr: true},
		{input: "$", wantErr: true},
		{input: "$1.234", wantErr: true},
		{input: "-5.00", wantErr: true},
		{input: "abc", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := parseCents(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
